package sink

import (
	"context"
	"errors"
	"strings"
	"testing"

	"seerrgram/internal/dispatch"
	"seerrgram/internal/transport"
	logx "seerrgram/pkg/logx"
)

type fakeAdapter struct {
	sendErr error
	sent    []struct {
		to   transport.ChatTarget
		text string
		opt  *transport.SendOptions
	}
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                           { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if f.sendErr != nil {
		return transport.MessageRef{}, f.sendErr
	}
	f.sent = append(f.sent, struct {
		to   transport.ChatTarget
		text string
		opt  *transport.SendOptions
	}{to, text, opt})
	return transport.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func TestFormatPayload(t *testing.T) {
	t.Parallel()

	p := dispatch.Payload{
		Title:    "Media Declined",
		Body:     "Dune <Part Two>",
		BodyLink: "https://seerr.example/movie/438631",
		Author:   "alice",
		Severity: dispatch.SeverityRed,
		Fields: []dispatch.Field{
			{Label: "Requested By", Value: "alice", Inline: true},
			{Label: "Request Status", Value: "Declined", Inline: true},
		},
	}
	got := formatPayload(p)

	for _, want := range []string{
		"🔴 <b>Media Declined</b>",
		`<a href="https://seerr.example/movie/438631">Dune &lt;Part Two&gt;</a>`,
		"<i>by alice</i>",
		"<b>Requested By:</b> alice",
		"<b>Request Status:</b> Declined",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted payload missing %q:\n%s", want, got)
		}
	}
}

func TestDeliverDirect(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	s := NewTelegram(ad, nil, logx.Nop())

	ok, err := s.DeliverDirect(context.Background(), 4242, dispatch.Payload{Title: "T", Body: "B"})
	if err != nil || !ok {
		t.Fatalf("DeliverDirect = (%v, %v), want (true, nil)", ok, err)
	}
	if len(ad.sent) != 1 || ad.sent[0].to.ChatID != 4242 {
		t.Fatalf("sent = %+v", ad.sent)
	}
	if ad.sent[0].opt.ParseMode != "html" && ad.sent[0].opt.ParseMode != "HTML" {
		t.Errorf("parse mode = %q", ad.sent[0].opt.ParseMode)
	}
}

func TestDeliverDirectError(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{sendErr: errors.New("blocked by user")}
	s := NewTelegram(ad, nil, logx.Nop())

	ok, err := s.DeliverDirect(context.Background(), 4242, dispatch.Payload{})
	if ok || err == nil {
		t.Fatalf("DeliverDirect = (%v, %v), want (false, error)", ok, err)
	}
}

func TestDeliverBroadcastUnconfigured(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	s := NewTelegram(ad, func(context.Context) (transport.ChatTarget, bool) {
		return transport.ChatTarget{}, false
	}, logx.Nop())

	ok, err := s.DeliverBroadcast(context.Background(), dispatch.Payload{})
	if err != nil {
		t.Fatalf("DeliverBroadcast: %v", err)
	}
	if ok {
		t.Error("delivered = true with no target configured")
	}
	if len(ad.sent) != 0 {
		t.Errorf("adapter called: %+v", ad.sent)
	}
}

func TestDeliverBroadcastConfigured(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	s := NewTelegram(ad, func(context.Context) (transport.ChatTarget, bool) {
		return transport.ChatTarget{ChatID: -100123, ThreadID: 7}, true
	}, logx.Nop())

	p := dispatch.Payload{
		Title:  "Available",
		Body:   "Dune",
		Action: &dispatch.Action{Label: "View Requests", URL: "https://seerr.example/requests"},
	}
	ok, err := s.DeliverBroadcast(context.Background(), p)
	if err != nil || !ok {
		t.Fatalf("DeliverBroadcast = (%v, %v), want (true, nil)", ok, err)
	}
	sent := ad.sent[0]
	if sent.to.ChatID != -100123 || sent.to.ThreadID != 7 {
		t.Errorf("target = %+v", sent.to)
	}
	if sent.opt.ReplyMarkupAdapter == nil {
		t.Error("no reply markup for action link")
	}
}
