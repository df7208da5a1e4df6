package session

import (
	"fmt"
	"hash/fnv"
)

// Seed modes. Fixed mode multiplies a configured base seed by the turn
// number; generated mode hashes the (game, session, turn) triple. Both are
// pure functions of their inputs, which is what makes replay work.
const (
	SeedModeFixed     = "fixed"
	SeedModeGenerated = "generated"
)

func fixedSeed(base int64, turn int) int64 {
	if turn < 1 {
		turn = 1
	}
	return base * int64(turn)
}

// generatedSeed is an FNV-1a hash over the identifying triple. The fields are
// separated by NUL so ("ab","c") and ("a","bc") cannot collide.
func generatedSeed(gameID, sessionID string, turn int) int64 {
	h := fnv.New64a()
	h.Write([]byte(gameID))
	h.Write([]byte{0})
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", turn)
	return int64(h.Sum64())
}
