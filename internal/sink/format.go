// Package sink delivers rendered notification payloads over Telegram,
// as direct messages and to the configured broadcast chat.
package sink

import (
	"strings"

	"seerrgram/internal/dispatch"
	"seerrgram/pkg/tgui"
)

// Telegram has no embed colors; severity maps to a colored dot in the
// title line instead.
var severityEmoji = map[dispatch.Severity]string{
	dispatch.SeverityRed:    "🔴",
	dispatch.SeverityGreen:  "🟢",
	dispatch.SeverityBlue:   "🔵",
	dispatch.SeverityOrange: "🟠",
	dispatch.SeverityPurple: "🟣",
	dispatch.SeverityGold:   "🟡",
}

// formatPayload renders a payload as Telegram HTML.
func formatPayload(p dispatch.Payload) string {
	var b strings.Builder

	title := tgui.B(p.Title)
	if dot := severityEmoji[p.Severity]; dot != "" {
		title = tgui.JoinH(" ", tgui.Raw(dot), title)
	}
	b.WriteString(title.String())
	b.WriteString("\n")

	if p.BodyLink != "" {
		b.WriteString(tgui.Link(p.Body, p.BodyLink).String())
	} else {
		b.WriteString(tgui.Esc(p.Body).String())
	}
	b.WriteString("\n")

	if p.Author != "" {
		b.WriteString(tgui.I("by " + p.Author).String())
		b.WriteString("\n")
	}

	for _, f := range p.Fields {
		b.WriteString("\n")
		b.WriteString(tgui.JoinH(" ", tgui.B(f.Label+":"), tgui.Esc(f.Value)).String())
	}

	return strings.TrimRight(b.String(), "\n")
}
