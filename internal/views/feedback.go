package views

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/utils"
)

const (
	requestTimeout = 30 * time.Second
	noticeDuration = 5 * time.Second
)

type FeedbackMessage struct {
	Type     FeedbackType
	Message  string
	Duration time.Duration
	ShowTime time.Time
}

type FeedbackType string

const (
	FeedbackSuccess FeedbackType = "success"
	FeedbackError   FeedbackType = "error"
	FeedbackWarning FeedbackType = "warning"
	FeedbackInfo    FeedbackType = "info"
)

type FeedbackTimeoutMsg struct{}

func newFeedback(feedbackType FeedbackType, message string, duration time.Duration) *FeedbackMessage {
	return &FeedbackMessage{
		Type:     feedbackType,
		Message:  message,
		Duration: duration,
		ShowTime: time.Now(),
	}
}

func (f *FeedbackMessage) Expired() bool {
	return f == nil || time.Since(f.ShowTime) > f.Duration
}

func (f *FeedbackMessage) timeout() tea.Cmd {
	return tea.Tick(f.Duration, func(time.Time) tea.Msg { return FeedbackTimeoutMsg{} })
}

func renderFeedback(f *FeedbackMessage) string {
	if f == nil {
		return ""
	}

	var color string
	switch f.Type {
	case FeedbackSuccess:
		color = utils.Colours.Success
	case FeedbackError:
		color = utils.Colours.Error
	case FeedbackWarning:
		color = utils.Colours.Warning
	case FeedbackInfo:
		color = utils.Colours.Info
	default:
		color = utils.Colours.Text
	}

	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Background(lipgloss.Color(utils.Colours.Surface)).
		Padding(0, 1).
		Bold(true).
		Render(f.Message)
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Accent))
	return s
}
