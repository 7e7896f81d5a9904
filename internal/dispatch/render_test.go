package dispatch

import (
	"strings"
	"testing"
)

func findField(p Payload, label string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Label == label {
			return f, true
		}
	}
	return Field{}, false
}

func TestRenderRequestTVJoinsAllSeasons(t *testing.T) {
	t.Parallel()

	r := NewRenderer("https://seerr.example")
	ev := RawEvent{
		"event":                "New Request",
		"subject":              "Severance",
		"media_type":           "tv",
		"media_tmdbid":         "95396",
		"requestedBy_username": "alice",
		"extra": []any{
			map[string]any{"name": "Requested Seasons", "value": "1"},
			map[string]any{"name": "Requested Seasons", "value": "2"},
			map[string]any{"name": "Something Else", "value": "x"},
		},
	}
	p := r.Render(ev, KindRequestAvailable)

	f, ok := findField(p, "Requested Seasons")
	if !ok {
		t.Fatal("no Requested Seasons field")
	}
	if f.Value != "1, 2" {
		t.Errorf("seasons = %q, want %q", f.Value, "1, 2")
	}
	if p.BodyLink != "https://seerr.example/tv/95396" {
		t.Errorf("body link = %q", p.BodyLink)
	}
	if p.Severity != SeverityGreen {
		t.Errorf("severity = %q, want green", p.Severity)
	}
	if status, _ := findField(p, "Request Status"); status.Value != "Available" {
		t.Errorf("status = %q, want Available", status.Value)
	}
}

func TestRenderIssueTVTakesFirstSeasonOnly(t *testing.T) {
	t.Parallel()

	r := NewRenderer("https://seerr.example")
	ev := RawEvent{
		"subject":             "Severance",
		"media_type":          "tv",
		"reportedBy_username": "bob",
		"issue_type":          "video",
		"issue_status":        "open",
		"issue_id":            "42",
		"extra": []any{
			map[string]any{"name": "Affected Season", "value": "1"},
			map[string]any{"name": "Affected Season", "value": "2"},
		},
	}
	p := r.Render(ev, KindIssueReported)

	f, ok := findField(p, "Affected Season")
	if !ok {
		t.Fatal("no Affected Season field")
	}
	if f.Value != "1" {
		t.Errorf("season = %q, want first entry only", f.Value)
	}
	if p.Action == nil || p.Action.URL != "https://seerr.example/issues/42" {
		t.Errorf("action = %+v, want issue link", p.Action)
	}
	if p.Severity != SeverityRed {
		t.Errorf("severity = %q, want red", p.Severity)
	}
}

func TestRenderIssueCommentField(t *testing.T) {
	t.Parallel()

	r := NewRenderer("")
	ev := RawEvent{
		"subject":              "Dune",
		"reportedBy_username":  "bob",
		"commentedBy_username": "carol",
		"comment_message":      "still broken",
	}
	p := r.Render(ev, KindIssueComment)

	if p.Author != "carol" {
		t.Errorf("author = %q, want commenter", p.Author)
	}
	f, ok := findField(p, "Comment from carol")
	if !ok {
		t.Fatal("no comment field")
	}
	if f.Value != "still broken" {
		t.Errorf("comment = %q", f.Value)
	}

	// Without a message the comment field is omitted entirely.
	delete(ev, "comment_message")
	p = r.Render(ev, KindIssueComment)
	for _, f := range p.Fields {
		if strings.HasPrefix(f.Label, "Comment from") {
			t.Errorf("unexpected comment field %q", f.Label)
		}
	}
}

func TestRenderEmptyEventNeverFails(t *testing.T) {
	t.Parallel()

	r := NewRenderer("")
	kinds := []Kind{
		KindRequestPending, KindRequestAutoApproved, KindRequestApproved,
		KindRequestDeclined, KindRequestAvailable, KindRequestFailed,
		KindIssueReported, KindIssueComment, KindIssueResolved,
		KindIssueReopened, KindTestNotification, KindUnknown,
	}
	for _, k := range kinds {
		p := r.Render(RawEvent{}, k)
		if p.Title == "" {
			t.Errorf("kind %s: empty title", k)
		}
		if p.Body == "" {
			t.Errorf("kind %s: empty body", k)
		}
		if p.BodyLink != "" {
			t.Errorf("kind %s: body link without base url", k)
		}
		if p.Action != nil {
			t.Errorf("kind %s: action without base url", k)
		}
	}
}

func TestRenderMovieLinkAndAction(t *testing.T) {
	t.Parallel()

	r := NewRenderer("https://seerr.example/")
	ev := RawEvent{
		"subject":      "Dune",
		"media_type":   "movie",
		"media_tmdbid": "438631",
	}
	p := r.Render(ev, KindRequestDeclined)

	if p.BodyLink != "https://seerr.example/movie/438631" {
		t.Errorf("body link = %q", p.BodyLink)
	}
	if p.Action == nil || p.Action.URL != "https://seerr.example/requests" {
		t.Errorf("action = %+v, want requests link", p.Action)
	}
	if p.Severity != SeverityRed {
		t.Errorf("severity = %q, want red", p.Severity)
	}
}

func TestRenderSeverityPerKind(t *testing.T) {
	t.Parallel()

	want := map[Kind]Severity{
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
	r := NewRenderer("")
	for k, sev := range want {
		if got := r.Render(RawEvent{}, k).Severity; got != sev {
			t.Errorf("kind %s: severity = %q, want %q", k, got, sev)
		}
	}
}
