package dispatch

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the per-kind color tag carried by a rendered payload.
type Severity string

const (
	SeverityRed    Severity = "red"
	SeverityGreen  Severity = "green"
	SeverityBlue   Severity = "blue"
	SeverityOrange Severity = "orange"
	SeverityPurple Severity = "purple"
	SeverityGold   Severity = "gold"
)

// Field is one labeled value of a rendered notification.
type Field struct {
	Label  string
	Value  string
	Inline bool
}

// Action is an optional link attached to a notification.
type Action struct {
	Label string
	URL   string
}

// Payload is a channel-agnostic rendered notification. Sinks format it
// for their platform; nothing here is Telegram-specific.
type Payload struct {
	Title        string
	Body         string
	BodyLink     string // optional detail-page URL for Body
	Author       string
	Fields       []Field
	ThumbnailURL string
	Action       *Action
	Severity     Severity
	Timestamp    time.Time
}

var severities = map[Kind]Severity{
	KindRequestPending:      SeverityOrange,
	KindRequestAutoApproved: SeverityPurple,
	KindRequestApproved:     SeverityPurple,
	KindRequestDeclined:     SeverityRed,
	KindRequestAvailable:    SeverityGreen,
	KindRequestFailed:       SeverityRed,
	KindIssueReported:       SeverityRed,
	KindIssueComment:        SeverityBlue,
	KindIssueResolved:       SeverityGreen,
	KindIssueReopened:       SeverityGold,
	KindTestNotification:    SeverityBlue,
}

var requestStatusLabels = map[Kind]string{
	KindRequestPending:      "Pending Approval",
	KindRequestAutoApproved: "Processing",
	KindRequestApproved:     "Processing",
	KindRequestDeclined:     "Declined",
	KindRequestAvailable:    "Available",
	KindRequestFailed:       "Failed",
}

// Renderer builds notification payloads. baseURL is the upstream
// service's public URL used for detail and action links; empty disables
// linking.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Render is total: every field access is defaulted and missing optional
// data simply omits the corresponding payload part.
func (r *Renderer) Render(e RawEvent, kind Kind) Payload {
	switch {
	case kind == KindTestNotification:
		return r.renderTest(e)
	case kind.IsIssue():
		return r.renderIssue(e, kind)
	default:
		return r.renderRequest(e, kind)
	}
}

func (r *Renderer) renderRequest(e RawEvent, kind Kind) Payload {
	p := Payload{
		Title:     defaultStr(e.Str("event"), "Request Update"),
		Body:      defaultStr(e.Str("subject"), "Unknown Title"),
		BodyLink:  r.mediaURL(e),
		Author:    defaultStr(e.Str("requestedBy_username"), "Unknown"),
		Severity:  severities[kind],
		Timestamp: time.Now().UTC(),
	}

	p.Fields = append(p.Fields, Field{Label: "Requested By", Value: p.Author, Inline: true})

	if strings.EqualFold(e.Str("media_type"), "tv") {
		var seasons []string
		for _, x := range e.Extra() {
			if strings.Contains(strings.ToLower(x.Name), "season") && x.Value != "" {
				seasons = append(seasons, x.Value)
			}
		}
		if len(seasons) > 0 {
			p.Fields = append(p.Fields, Field{Label: "Requested Seasons", Value: strings.Join(seasons, ", "), Inline: true})
		}
	}

	if status := requestStatusLabels[kind]; status != "" {
		p.Fields = append(p.Fields, Field{Label: "Request Status", Value: status, Inline: true})
	}

	if kind == KindRequestFailed {
		if extra := e.Extra(); len(extra) > 0 {
			parts := make([]string, 0, len(extra))
			for _, x := range extra {
				parts = append(parts, fmt.Sprintf("%s: %s", x.Name, x.Value))
			}
			p.Fields = append(p.Fields, Field{Label: "Error", Value: strings.Join(parts, "; ")})
		}
	}

	p.ThumbnailURL = e.Str("image")
	if r.baseURL != "" {
		p.Action = &Action{Label: "View Requests", URL: r.baseURL + "/requests"}
	}
	return p
}

func (r *Renderer) renderIssue(e RawEvent, kind Kind) Payload {
	reportedBy := defaultStr(e.Str("reportedBy_username"), "Unknown")
	commentedBy := e.Str("commentedBy_username")

	author := reportedBy
	if commentedBy != "" {
		author = commentedBy
	}

	p := Payload{
		Title:     defaultStr(e.Str("event"), "Issue Update"),
		Body:      defaultStr(e.Str("subject"), "Unknown Title"),
		BodyLink:  r.mediaURL(e),
		Author:    author,
		Severity:  severities[kind],
		Timestamp: time.Now().UTC(),
	}

	p.Fields = append(p.Fields,
		Field{Label: "Issue", Value: defaultStr(e.Str("message"), "Unknown issue")},
		Field{Label: "Reported By", Value: reportedBy, Inline: true},
		Field{Label: "Issue Type", Value: titleCase(defaultStr(e.Str("issue_type"), "Unknown")), Inline: true},
		Field{Label: "Issue Status", Value: titleCase(defaultStr(e.Str("issue_status"), "Unknown")), Inline: true},
	)

	// Issues surface only the first matching season entry; requests join
	// them all. The asymmetry is deliberate.
	if strings.EqualFold(e.Str("media_type"), "tv") {
		for _, x := range e.Extra() {
			if strings.Contains(strings.ToLower(x.Name), "season") && x.Value != "" {
				p.Fields = append(p.Fields, Field{Label: "Affected Season", Value: x.Value, Inline: true})
				break
			}
		}
	}

	if kind == KindIssueComment {
		if msg := e.Str("comment_message"); commentedBy != "" && msg != "" {
			p.Fields = append(p.Fields, Field{Label: "Comment from " + commentedBy, Value: msg})
		}
	}

	p.ThumbnailURL = e.Str("image")
	if issueID := e.Str("issue_id"); issueID != "" && r.baseURL != "" {
		p.Action = &Action{Label: "View Issue", URL: r.baseURL + "/issues/" + issueID}
	}
	return p
}

func (r *Renderer) renderTest(e RawEvent) Payload {
	return Payload{
		Title:     "Test Notification",
		Body:      defaultStr(e.Str("message"), "Test notification received"),
		Severity:  SeverityBlue,
		Timestamp: time.Now().UTC(),
	}
}

func (r *Renderer) mediaURL(e RawEvent) string {
	tmdbID := e.Str("media_tmdbid")
	if tmdbID == "" || r.baseURL == "" {
		return ""
	}
	if strings.EqualFold(e.Str("media_type"), "tv") {
		return r.baseURL + "/tv/" + tmdbID
	}
	return r.baseURL + "/movie/" + tmdbID
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
