package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("storage: not found")

// Settings keys for runtime overrides persisted across restarts.
const (
	SettingBroadcastChatID   = "broadcast_chat_id"
	SettingBroadcastThreadID = "broadcast_thread_id"
)

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Link maps a Telegram user to a Seerr account. At most one active link
// per side; the most recent link wins on lookup.
type Link struct {
	TelegramID    int64
	SeerrUserID   int64
	SeerrUsername string
	LinkedAt      time.Time
}

// EventRecord is one inbound webhook event, persisted before dispatch and
// updated exactly once with the final delivery flags.
type EventRecord struct {
	ID          int64
	Kind        string
	SeerrUserID *int64
	Payload     string
	Processed   bool
	SentDM      bool
	SentChannel bool
	CreatedAt   time.Time
}
