// Package ui is the bubbletea front-end for a local session: it streams
// narration, renders the choice list and maps typed input onto engine
// actions.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"storyengine/internal/debug"
	"storyengine/internal/game/choices"
	"storyengine/internal/game/session"
)

type Model struct {
	runtime *session.Runtime
	log     *debug.Logger

	messages        []string
	choices         []choices.Option
	input           string
	width           int
	height          int
	loading         bool
	streaming       bool
	currentResponse string
	animationFrame  int
	ended           bool
}

func NewModel(runtime *session.Runtime, initial *session.TurnResult, log *debug.Logger) Model {
	m := Model{
		runtime: runtime,
		log:     log,
		choices: initial.Choices,
	}
	if log.Enabled() {
		m.messages = append(m.messages,
			fmt.Sprintf("[DEBUG] session %s", runtime.ID()),
			"")
	}
	if initial.Narrative != "" {
		m.messages = append(m.messages, initial.Narrative, "")
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

type animationTickMsg struct{}

type turnStartedMsg struct {
	events <-chan session.StreamEvent
}

type turnChunkMsg struct {
	chunk  string
	events <-chan session.StreamEvent
}

type turnCompleteMsg struct {
	result *session.TurnResult
}

type turnErrorMsg struct {
	err error
}
