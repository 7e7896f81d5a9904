package dispatch

import (
	"context"
	"testing"

	"seerrgram/internal/storage"
	logx "seerrgram/pkg/logx"
)

type fakeLinks struct {
	byTelegram map[int64]storage.Link
	calls      int
}

func (f *fakeLinks) LinkByTelegramID(_ context.Context, id int64) (storage.Link, error) {
	f.calls++
	l, ok := f.byTelegram[id]
	if !ok {
		return storage.Link{}, storage.ErrNotFound
	}
	return l, nil
}

func TestResolveAdminOnly(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{byTelegram: map[int64]storage.Link{
		100: {TelegramID: 100, SeerrUserID: 7},
	}}
	r := NewResolver(links, logx.Nop())

	ev := RawEvent{fieldNotifyUser: "100"}
	if got := r.Resolve(context.Background(), ev, RecipientPolicy{AdminOnly: true}); got != nil {
		t.Fatalf("admin-only policy resolved %+v, want nil", got)
	}
	if links.calls != 0 {
		t.Errorf("link store consulted %d times for admin-only event", links.calls)
	}
}

func TestResolveLinked(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{byTelegram: map[int64]storage.Link{
		100: {TelegramID: 100, SeerrUserID: 7},
	}}
	r := NewResolver(links, logx.Nop())

	got := r.Resolve(context.Background(), RawEvent{fieldNotifyUser: "100"},
		RecipientPolicy{Field: fieldNotifyUser, ExpectedField: fieldNotifyUser})
	if got == nil {
		t.Fatal("expected a resolved account")
	}
	if got.SeerrUserID != 7 || got.TelegramID != 100 {
		t.Errorf("resolved %+v, want seerr=7 telegram=100", got)
	}
}

func TestResolveMisses(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{byTelegram: map[int64]storage.Link{}}
	r := NewResolver(links, logx.Nop())
	policy := RecipientPolicy{Field: fieldNotifyUser}

	cases := []struct {
		name string
		ev   RawEvent
	}{
		{"missing field", RawEvent{}},
		{"empty value", RawEvent{fieldNotifyUser: ""}},
		{"non numeric", RawEvent{fieldNotifyUser: "not-a-number"}},
		{"unlinked", RawEvent{fieldNotifyUser: "555"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(context.Background(), tc.ev, policy); got != nil {
				t.Errorf("resolved %+v, want nil", got)
			}
		})
	}
}

func TestResolveMismatchUsesPrimaryField(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{byTelegram: map[int64]storage.Link{
		100: {TelegramID: 100, SeerrUserID: 7},
		200: {TelegramID: 200, SeerrUserID: 9},
	}}
	r := NewResolver(links, logx.Nop())

	// commentedBy carries 200, notifyuser carries 100: the warning path,
	// and the commenter's link must win.
	ev := RawEvent{
		fieldCommentedBy: "200",
		fieldNotifyUser:  "100",
	}
	got := r.Resolve(context.Background(), ev,
		RecipientPolicy{Field: fieldCommentedBy, ExpectedField: fieldNotifyUser})
	if got == nil {
		t.Fatal("expected a resolved account despite mismatch")
	}
	if got.SeerrUserID != 9 {
		t.Errorf("resolved seerr user %d, want 9 (primary field)", got.SeerrUserID)
	}
}
