package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	inputHeight := 3
	statusHeight := 1
	choiceLines := len(m.choices)
	if choiceLines > 0 {
		choiceLines++ // header line
	}
	chatHeight := m.height - inputHeight - statusHeight - choiceLines

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	userStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	choiceStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(m.width - 4)

	chatPanel := lipgloss.NewStyle().
		Width(m.width).
		Height(chatHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1)

	var chatContent strings.Builder

	visibleMessages := m.messages
	maxMessages := chatHeight - 2
	if maxMessages < 1 {
		maxMessages = 1
	}
	if len(visibleMessages) > maxMessages {
		visibleMessages = visibleMessages[len(visibleMessages)-maxMessages:]
	}

	for i := len(visibleMessages); i < maxMessages; i++ {
		chatContent.WriteString("\n")
	}

	debugStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("6"))

	contentWidth := m.width - 4

	for _, message := range visibleMessages {
		switch {
		case message == "":
			chatContent.WriteString("\n")
		case strings.HasPrefix(message, "> "):
			chatContent.WriteString(userStyle.Render(wrapAndIndent(message, contentWidth, " ")) + "\n")
		case strings.HasPrefix(message, "[DEBUG] "):
			chatContent.WriteString(debugStyle.Render(wrapAndIndent(message, contentWidth, " ")) + "\n")
		case message == "LOADING_ANIMATION":
			chatContent.WriteString(loadingStyle.Render(wrapAndIndent(getLoadingAnimation(m.animationFrame), contentWidth, " ")) + "\n")
		default:
			chatContent.WriteString(messageStyle.Render(wrapAndIndent(message, contentWidth, " ")) + "\n")
		}
	}

	var sections []string
	sections = append(sections, chatPanel.Render(chatContent.String()))

	if len(m.choices) > 0 && !m.loading {
		var choiceContent strings.Builder
		choiceContent.WriteString(choiceStyle.Bold(true).Render(" Choices:"))
		for i, c := range m.choices {
			choiceContent.WriteString("\n" + choiceStyle.Render(fmt.Sprintf(" %d. %s", i+1, c.Label)))
		}
		sections = append(sections, choiceContent.String())
	}

	sections = append(sections, statusStyle.Render(" "+m.statusLine()))
	sections = append(sections, inputStyle.Render(m.input+"│"))

	return strings.Join(sections, "\n")
}

func (m Model) statusLine() string {
	state := m.runtime.State()
	return fmt.Sprintf("Day %d · %s %s · %s · turn %d",
		state.Time.Day, state.Time.Slot, state.Time.TimeHHMM,
		state.CurrentLocation, state.TurnCount)
}

func wrapAndIndent(text string, width int, indent string) string {
	if len(text) <= width {
		return indent + text
	}

	var result strings.Builder
	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	currentLine := indent + words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}

	result.WriteString(currentLine)
	return result.String()
}

func getLoadingAnimation(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
