// Terminal client for the story engine. Plays a session with streamed
// narration; "review" and "rate" subcommands inspect the sqlite turn log.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"storyengine/internal/logging"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "review", "--review":
			runReviewMode()
			return
		case "rate":
			if len(os.Args) < 4 {
				fmt.Println("Usage: game rate <id> <rating> [notes]")
				return
			}
			runRatingMode()
			return
		}
	}

	model, cleanup, err := createApp()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func openTurnLog() *logging.TurnLogger {
	path := os.Getenv("LOG_DB")
	logger, err := logging.NewTurnLogger(path)
	if err != nil {
		fmt.Printf("Failed to open turn database: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runReviewMode() {
	logger := openTurnLog()
	defer logger.Close()

	turns, err := logger.GetRecentTurns(10)
	if err != nil {
		fmt.Printf("Failed to get turns: %v\n", err)
		return
	}
	if len(turns) == 0 {
		fmt.Println("No turns found. Play the game first to generate data!")
		return
	}

	fmt.Printf("Recent turns (%d):\n\n", len(turns))
	for _, turn := range turns {
		var meta logging.TurnMetadata
		if err := json.Unmarshal([]byte(turn.Metadata), &meta); err == nil && meta.AIUsed {
			fmt.Printf("[%d] %s | session %s turn %d (seed %d) | ai | %s\n",
				turn.ID, turn.Timestamp.Format("15:04:05"), turn.SessionID, turn.Turn, turn.Seed, turn.Action)
		} else {
			fmt.Printf("[%d] %s | session %s turn %d (seed %d) | %s\n",
				turn.ID, turn.Timestamp.Format("15:04:05"), turn.SessionID, turn.Turn, turn.Seed, turn.Action)
		}

		fmt.Printf("Narrative: %s\n", turn.Narrative)
		if turn.Events != "" {
			fmt.Printf("Events: %s\n", turn.Events)
		}
		if turn.Rating != nil {
			fmt.Printf("Rating: %d/5", *turn.Rating)
			if turn.Notes != nil {
				fmt.Printf(" - %s", *turn.Notes)
			}
		} else {
			fmt.Printf("Rating: not rated")
		}
		fmt.Println("\n" + strings.Repeat("-", 50))
	}

	fmt.Println("\nTo rate a turn: game rate <id> <rating> [notes]")
}

func runRatingMode() {
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Printf("Invalid ID: %v\n", err)
		return
	}
	rating, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fmt.Printf("Invalid rating: %v\n", err)
		return
	}
	if rating < 1 || rating > 5 {
		fmt.Println("Rating must be between 1 and 5")
		return
	}

	var notes string
	if len(os.Args) > 4 {
		notes = strings.Join(os.Args[4:], " ")
	}

	logger := openTurnLog()
	defer logger.Close()

	if err := logger.RateTurn(id, rating, notes); err != nil {
		fmt.Printf("Failed to rate turn: %v\n", err)
		return
	}

	fmt.Printf("Rated turn %d as %d/5", id, rating)
	if notes != "" {
		fmt.Printf(" with notes: %s", notes)
	}
	fmt.Println()
}
