package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	JobName lipgloss.Style
}

// NewStyles builds styles bound to w. Without a terminal every style renders
// plain text.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	if !isTTY {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1: plain,
			Header2: plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
			Muted:   plain,
			JobName: plain,
		}
	}

	re := lipgloss.NewRenderer(w)
	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Underline(true),
		Header2: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: re.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		JobName: re.NewStyle().Bold(true),
	}
}
