// Package dispatch is the notification routing engine: it classifies an
// inbound webhook event, resolves the recipient, renders a
// channel-agnostic payload, and delivers it through the configured sinks
// while recording the outcome.
package dispatch

import (
	"strconv"
	"strings"
)

// RawEvent is the untyped webhook payload as sent by the upstream
// service. Field access is always defaulted; a missing or mistyped field
// reads as the zero value.
type RawEvent map[string]any

// Str reads a string field, returning "" when absent or not a string.
func (e RawEvent) Str(key string) string {
	v, ok := e[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; ids arrive both ways.
		return strconv.FormatInt(int64(s), 10)
	default:
		return ""
	}
}

// Int64 reads a numeric field carried either as a JSON number or as a
// numeric string. Returns (0, false) when absent or malformed.
func (e RawEvent) Int64(key string) (int64, bool) {
	s := strings.TrimSpace(e.Str(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtraEntry is one {name, value} pair of the upstream "extra" list.
type ExtraEntry struct {
	Name  string
	Value string
}

// Extra reads the "extra" field as a list of name/value entries,
// skipping anything malformed.
func (e RawEvent) Extra() []ExtraEntry {
	raw, ok := e["extra"].([]any)
	if !ok {
		return nil
	}
	out := make([]ExtraEntry, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		value, _ := m["value"].(string)
		if name == "" {
			continue
		}
		out = append(out, ExtraEntry{Name: name, Value: value})
	}
	return out
}

// Kind is the internal event kind an upstream notification-type tag maps
// to. Stored in the event log, so values are stable strings.
type Kind string

const (
	KindRequestPending      Kind = "request_pending_approval"
	KindRequestAutoApproved Kind = "request_auto_approved"
	KindRequestApproved     Kind = "request_approved"
	KindRequestDeclined     Kind = "request_declined"
	KindRequestAvailable    Kind = "request_available"
	KindRequestFailed       Kind = "request_processing_failed"
	KindIssueReported       Kind = "issue_reported"
	KindIssueComment        Kind = "issue_comment"
	KindIssueResolved       Kind = "issue_resolved"
	KindIssueReopened       Kind = "issue_reopened"
	KindTestNotification    Kind = "test_notification"
	KindUnknown             Kind = "unknown"
)

// IsRequest reports whether the kind belongs to the request lifecycle.
func (k Kind) IsRequest() bool {
	switch k {
	case KindRequestPending, KindRequestAutoApproved, KindRequestApproved,
		KindRequestDeclined, KindRequestAvailable, KindRequestFailed:
		return true
	}
	return false
}

// IsIssue reports whether the kind belongs to the issue lifecycle.
func (k Kind) IsIssue() bool {
	switch k {
	case KindIssueReported, KindIssueComment, KindIssueResolved, KindIssueReopened:
		return true
	}
	return false
}
