// Package render maps message and session data to terminal output.
// All functions are pure: same input, same string, no state.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/store"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	modelLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	imageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AFAFAF")).
			Italic(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	rowTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	rowIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Message renders one message: role label, text, image placeholders,
// and an error marker for failed model turns.
func Message(msg types.Message) string {
	var b strings.Builder

	b.WriteString(roleLabel(msg.Role))
	b.WriteString("\n")

	if text := msg.TextContent(); text != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}
	for _, img := range msg.Images() {
		b.WriteString(imageStyle.Render(imagePlaceholder(img)))
		b.WriteString("\n")
	}
	if msg.Failed {
		reason := "response interrupted"
		if msg.StopReason == types.StopReasonCancelled {
			reason = "response cancelled"
		}
		b.WriteString(errorStyle.Render("[" + reason + "]"))
		b.WriteString("\n")
	}
	if msg.Usage != nil && !msg.Usage.IsEmpty() {
		b.WriteString(metaStyle.Render(fmt.Sprintf("(%d in / %d out tokens)", msg.Usage.InputTokens, msg.Usage.OutputTokens)))
		b.WriteString("\n")
	}
	return b.String()
}

// UsageTotal renders the aggregate token count for a whole session.
func UsageTotal(u types.Usage) string {
	return metaStyle.Render(fmt.Sprintf("session total: %d in / %d out tokens", u.InputTokens, u.OutputTokens))
}

// SessionRow renders one line for a session listing.
func SessionRow(s store.Session) string {
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s  %s  %s",
		rowIDStyle.Render(shortID(s.ID)),
		rowTitleStyle.Render(title),
		metaStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")),
	)
}

// Error renders an error line.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return errorStyle.Render("error: " + err.Error())
}

func roleLabel(role string) string {
	switch role {
	case types.RoleUser:
		return userLabelStyle.Render("you")
	case types.RoleModel:
		return modelLabelStyle.Render("gemini")
	default:
		return metaStyle.Render(role)
	}
}

func imagePlaceholder(img types.ImageBlock) string {
	switch img.Source.Type {
	case "url":
		return "[image: " + img.Source.URL + "]"
	default:
		mediaType := img.Source.MediaType
		if mediaType == "" {
			mediaType = "image"
		}
		return fmt.Sprintf("[inline %s, %d bytes base64]", mediaType, len(img.Source.Data))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
