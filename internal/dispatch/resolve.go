package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"seerrgram/internal/storage"
	logx "seerrgram/pkg/logx"
)

// LinkLookup is the slice of the identity store the resolver needs.
type LinkLookup interface {
	LinkByTelegramID(ctx context.Context, telegramID int64) (storage.Link, error)
}

// ResolvedAccount is the outcome of recipient resolution: the linked
// upstream account and the Telegram identity to deliver to.
type ResolvedAccount struct {
	SeerrUserID int64
	TelegramID  int64
}

// Resolver turns a raw event's recipient field into a linked account.
type Resolver struct {
	links LinkLookup
	log   logx.Logger
}

func NewResolver(links LinkLookup, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{links: links, log: log}
}

// Resolve returns the linked account for the event's recipient, or nil
// when there is none. Absence of a recipient is an expected case, never
// an error: admin-only policies, missing fields, malformed identifiers,
// and unlinked identities all resolve to nil.
func (r *Resolver) Resolve(ctx context.Context, e RawEvent, policy RecipientPolicy) *ResolvedAccount {
	if policy.AdminOnly || policy.Field == "" {
		return nil
	}

	raw := strings.TrimSpace(e.Str(policy.Field))
	if raw == "" {
		r.log.Debug("no recipient id in payload", logx.String("field", policy.Field))
		return nil
	}

	// The same identity may arrive under two keys (the notify-user's
	// settings vs. the acting user's). A disagreement is suspicious but
	// not fatal: warn and trust the primary field.
	if policy.ExpectedField != "" && policy.ExpectedField != policy.Field {
		if expected := strings.TrimSpace(e.Str(policy.ExpectedField)); expected != "" && expected != raw {
			r.log.Warn("recipient id mismatch between payload fields",
				logx.String("field", policy.Field),
				logx.String("value", raw),
				logx.String("expected_field", policy.ExpectedField),
				logx.String("expected", expected),
			)
		}
	}

	telegramID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.log.Debug("recipient id is not numeric", logx.String("field", policy.Field), logx.String("value", raw))
		return nil
	}

	link, err := r.links.LinkByTelegramID(ctx, telegramID)
	if errors.Is(err, storage.ErrNotFound) {
		r.log.Debug("no linked account for recipient", logx.Int64("telegram_id", telegramID))
		return nil
	}
	if err != nil {
		r.log.Error("link lookup failed", logx.Int64("telegram_id", telegramID), logx.Err(err))
		return nil
	}
	return &ResolvedAccount{SeerrUserID: link.SeerrUserID, TelegramID: link.TelegramID}
}
