package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"storyengine/internal/game/session"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case turnStartedMsg:
		return m.handleTurnStarted(msg)
	case turnChunkMsg:
		return m.handleTurnChunk(msg)
	case turnCompleteMsg:
		return m.handleTurnComplete(msg)
	case turnErrorMsg:
		return m.handleTurnError(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case animationTickMsg:
		return m.handleAnimation()
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) handleTurnStarted(msg turnStartedMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		m.messages = m.messages[:len(m.messages)-1]
		m.streaming = true
		m.currentResponse = ""
		m.messages = append(m.messages, "")
	}
	return m, readNextEvent(msg.events)
}

func (m Model) handleTurnChunk(msg turnChunkMsg) (tea.Model, tea.Cmd) {
	if m.streaming {
		m.currentResponse += msg.chunk
		if len(m.messages) > 0 {
			m.messages[len(m.messages)-1] = m.currentResponse
		}
	}
	return m, readNextEvent(msg.events)
}

func (m Model) handleTurnComplete(msg turnCompleteMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	m.loading = false
	m.choices = msg.result.Choices

	// The streamed prose is already on screen; append whatever the engine
	// added after it (beats, event narration).
	if extra := strings.TrimPrefix(msg.result.Narrative, m.currentResponse); extra != "" && extra != msg.result.Narrative {
		m.messages = append(m.messages, strings.TrimSpace(extra))
	} else if m.currentResponse == "" && msg.result.Narrative != "" {
		if len(m.messages) > 0 && m.messages[len(m.messages)-1] == "" {
			m.messages = m.messages[:len(m.messages)-1]
		}
		m.messages = append(m.messages, msg.result.Narrative)
	}

	for _, id := range msg.result.EventsFired {
		if m.log.Enabled() {
			m.messages = append(m.messages, "[DEBUG] event: "+id)
		}
	}
	for _, id := range msg.result.MilestonesReached {
		if m.log.Enabled() {
			m.messages = append(m.messages, "[DEBUG] milestone: "+id)
		}
	}
	m.messages = append(m.messages, "")

	if len(msg.result.Choices) == 0 {
		m.ended = true
		m.messages = append(m.messages, "The story has reached its end. Press q to quit.", "")
	}
	return m, nil
}

func (m Model) handleTurnError(msg turnErrorMsg) (tea.Model, tea.Cmd) {
	if m.loading && !m.streaming && len(m.messages) > 0 {
		m.messages = m.messages[:len(m.messages)-1]
	}
	m.loading = false
	m.streaming = false

	switch {
	case errors.Is(msg.err, session.ErrTerminalNode):
		m.ended = true
		m.messages = append(m.messages, "The story has reached its end. Press q to quit.", "")
	case errors.Is(msg.err, session.ErrInvalidAction),
		errors.Is(msg.err, session.ErrUnknownTarget),
		errors.Is(msg.err, session.ErrInsufficientFunds):
		m.messages = append(m.messages, fmt.Sprintf("You can't do that: %v", msg.err), "")
	default:
		m.messages = append(m.messages, fmt.Sprintf("Error: %v", msg.err), "")
	}
	return m, nil
}

func (m Model) handleAnimation() (tea.Model, tea.Cmd) {
	if m.loading {
		m.animationFrame++
		return m, animationTimer()
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		if strings.TrimSpace(m.input) == "" || m.loading || m.ended {
			return m, nil
		}
		userInput := m.input
		m.input = ""

		m.messages = append(m.messages, "> "+userInput, "")
		m.loading = true
		m.animationFrame = 0
		m.messages = append(m.messages, "LOADING_ANIMATION")

		action := parseInput(userInput, m.choices)
		return m, tea.Batch(startTurn(m.runtime, action), animationTimer())

	case "backspace":
		if len(m.input) > 0 && !m.loading {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil

	default:
		if len(msg.String()) == 1 && !m.loading {
			m.input += msg.String()
		}
		return m, nil
	}
}
