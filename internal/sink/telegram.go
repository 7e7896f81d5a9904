package sink

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"seerrgram/internal/dispatch"
	"seerrgram/internal/transport"
	logx "seerrgram/pkg/logx"
)

// BroadcastTargetFunc resolves the current broadcast chat. ok=false
// means no broadcast destination is configured.
type BroadcastTargetFunc func(ctx context.Context) (transport.ChatTarget, bool)

// Telegram implements both delivery sinks over one transport adapter.
type Telegram struct {
	adapter transport.Adapter
	target  BroadcastTargetFunc
	log     logx.Logger
}

func NewTelegram(adapter transport.Adapter, target BroadcastTargetFunc, log logx.Logger) *Telegram {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{adapter: adapter, target: target, log: log}
}

func (t *Telegram) DeliverDirect(ctx context.Context, telegramID int64, p dispatch.Payload) (bool, error) {
	err := t.send(ctx, transport.ChatTarget{ChatID: telegramID}, p)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Telegram) DeliverBroadcast(ctx context.Context, p dispatch.Payload) (bool, error) {
	if t.target == nil {
		return false, nil
	}
	to, ok := t.target(ctx)
	if !ok || to.ChatID == 0 {
		t.log.Debug("no broadcast chat configured")
		return false, nil
	}
	if err := t.send(ctx, to, p); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Telegram) send(ctx context.Context, to transport.ChatTarget, p dispatch.Payload) error {
	opt := &transport.SendOptions{
		ParseMode:      tele.ModeHTML,
		DisablePreview: p.ThumbnailURL == "",
	}
	if p.Action != nil && p.Action.URL != "" {
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(markup.URL(p.Action.Label, p.Action.URL)))
		opt.ReplyMarkupAdapter = markup
	}
	_, err := t.adapter.SendText(ctx, to, formatPayload(p), opt)
	return err
}
