package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storyengine/internal/game/choices"
	"storyengine/internal/game/session"
)

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func startTurn(runtime *session.Runtime, action session.Action) tea.Cmd {
	return func() tea.Msg {
		events := runtime.ProcessActionStream(context.Background(), action)
		return turnStartedMsg{events: events}
	}
}

// readNextEvent pulls one stream event and converts it into a tea message.
// The stream terminates with a complete or error event, after which the
// channel is never read again.
func readNextEvent(events <-chan session.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return turnErrorMsg{err: fmt.Errorf("turn stream closed unexpectedly")}
		}
		switch ev.Type {
		case session.EventChunk:
			return turnChunkMsg{chunk: ev.Chunk, events: events}
		case session.EventComplete:
			return turnCompleteMsg{result: ev.Result}
		default:
			return turnErrorMsg{err: ev.Err}
		}
	}
}

// parseInput maps typed input onto an engine action. A bare number selects
// from the current choice list; recognized verbs dispatch to their
// deterministic action type; anything else is free text for the narrator.
func parseInput(input string, options []choices.Option) session.Action {
	input = strings.TrimSpace(input)

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return optionAction(options[n-1])
	}

	fields := strings.Fields(input)
	if len(fields) >= 2 {
		rest := strings.Join(fields[1:], " ")
		switch strings.ToLower(fields[0]) {
		case "go", "move":
			return session.Action{Type: "move", Target: rest}
		case "use":
			return session.Action{Type: "use", ItemID: rest}
		case "take":
			return session.Action{Type: "take", ItemID: rest}
		case "drop":
			return session.Action{Type: "drop", ItemID: rest}
		case "buy":
			return session.Action{Type: "buy", ItemID: rest}
		case "sell":
			return session.Action{Type: "sell", ItemID: rest}
		case "give":
			// "give <item> to <character>"
			if i := indexOf(fields, "to"); i > 1 && i < len(fields)-1 {
				return session.Action{
					Type:   "give",
					ItemID: strings.Join(fields[1:i], " "),
					Target: strings.Join(fields[i+1:], " "),
				}
			}
		}
	}
	if strings.EqualFold(input, "wait") {
		return session.Action{Type: "wait"}
	}

	return session.Action{Type: "do", Text: input}
}

func optionAction(opt choices.Option) session.Action {
	if opt.Source == "movement" {
		return session.Action{Type: "move", Target: opt.Target}
	}
	return session.Action{Type: "choice", ChoiceID: opt.ID}
}

func indexOf(fields []string, word string) int {
	for i, f := range fields {
		if strings.EqualFold(f, word) {
			return i
		}
	}
	return -1
}
