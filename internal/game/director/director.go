// Package director mediates between the deterministic engine and the AI
// narration layer. The writer produces prose for a turn; the checker reads
// that prose back into a structured StateDelta. The AI is only ever a
// state-delta producer: everything it returns is applied through the effect
// resolver under the same invariants as authored content.
package director

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyengine/internal/debug"
	"storyengine/internal/llm"
)

// TurnContext is the prompt context for one turn: where the player is, what
// they did, and what the engine already knows happened.
type TurnContext struct {
	SessionID         string
	NodeTitle         string
	LocationName      string
	Action            string
	Beats             []string
	NarrativeHistory  []string
	MemoryLog         []string
	PresentCharacters []string
}

// Writer produces narrative prose for a turn. OnChunk, when non-nil,
// receives incremental chunks as they arrive.
type Writer interface {
	Narrate(ctx context.Context, tc TurnContext, onChunk func(string)) (string, error)
}

// Checker extracts a structured state delta from the writer's prose.
type Checker interface {
	ExtractDelta(ctx context.Context, tc TurnContext, prose string) (*StateDelta, error)
}

// Director is the LLM-backed writer/checker pair.
type Director struct {
	llm *llm.Service
	log *debug.Logger
}

func New(service *llm.Service, log *debug.Logger) *Director {
	return &Director{llm: service, log: log}
}

func (d *Director) Narrate(ctx context.Context, tc TurnContext, onChunk func(string)) (string, error) {
	ctx = llm.WithOperationType(ctx, "turn_narration")
	ctx = llm.WithSessionID(ctx, tc.SessionID)

	systemPrompt := buildWriterPrompt(tc)
	userPrompt := buildTurnContext(tc) + "PLAYER ACTION: " + tc.Action

	if onChunk == nil {
		return d.llm.CompleteText(ctx, llm.TextCompletionRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			MaxTokens:    300,
		})
	}

	return d.llm.CompleteStreamText(ctx, llm.StreamCompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    300,
	}, onChunk)
}

func (d *Director) ExtractDelta(ctx context.Context, tc TurnContext, prose string) (*StateDelta, error) {
	ctx = llm.WithOperationType(ctx, "delta_extraction")
	ctx = llm.WithSessionID(ctx, tc.SessionID)

	raw, err := d.llm.CompleteJSON(ctx, llm.JSONCompletionRequest{
		SystemPrompt: buildCheckerPrompt(tc),
		UserPrompt:   buildTurnContext(tc) + "PLAYER ACTION: " + tc.Action + "\n\nNARRATION:\n" + prose,
		MaxTokens:    400,
	})
	if err != nil {
		return nil, fmt.Errorf("delta extraction failed: %w", err)
	}

	var delta StateDelta
	if err := json.Unmarshal([]byte(raw), &delta); err != nil {
		d.log.Printf("failed to parse checker delta, using empty: %v", err)
		return &StateDelta{}, nil
	}
	return &delta, nil
}

// buildTurnContext renders the engine's view of the world for the prompts.
func buildTurnContext(tc TurnContext) string {
	var sb strings.Builder
	sb.WriteString("WORLD STATE:\n")
	sb.WriteString("Scene: " + tc.NodeTitle + "\n")
	sb.WriteString("Location: " + tc.LocationName + "\n")
	if len(tc.PresentCharacters) > 0 {
		sb.WriteString(fmt.Sprintf("Characters present: %v\n", tc.PresentCharacters))
	}
	if len(tc.Beats) > 0 {
		sb.WriteString("PENDING STORY BEATS:\n")
		for _, beat := range tc.Beats {
			sb.WriteString("- " + beat + "\n")
		}
	}
	if len(tc.MemoryLog) > 0 {
		sb.WriteString("ESTABLISHED FACTS:\n")
		for _, fact := range tc.MemoryLog {
			sb.WriteString("- " + fact + "\n")
		}
	}
	if len(tc.NarrativeHistory) > 0 {
		sb.WriteString("RECENT NARRATION:\n")
		for _, entry := range tc.NarrativeHistory {
			sb.WriteString(entry + "\n")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
