// Package storage is the persistence layer: identity links between
// Telegram users and Seerr accounts, the webhook event log, and a small
// key/value settings table.
package storage

import (
	"context"
	"time"
)

// Store is the persistence API used by the dispatch engine, the command
// surface, and maintenance jobs.
type Store interface {
	// Identity links. SaveLink replaces any existing link for the same
	// Telegram user; lookups return the most recent link.
	SaveLink(ctx context.Context, l Link) error
	DeleteLink(ctx context.Context, telegramID int64) error
	LinkByTelegramID(ctx context.Context, telegramID int64) (Link, error)
	LinkBySeerrUser(ctx context.Context, seerrUserID int64) (Link, error)
	Links(ctx context.Context) ([]Link, error)

	// Webhook event log. InsertEvent assigns the durable id used for
	// idempotent outcome recording; MarkEventProcessed is last-write-wins.
	InsertEvent(ctx context.Context, kind string, seerrUserID *int64, payload string) (int64, error)
	MarkEventProcessed(ctx context.Context, id int64, sentDM, sentChannel bool) error
	RecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)

	// Settings (runtime overrides, e.g. the broadcast channel).
	SetSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)

	// Ping verifies the underlying database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
