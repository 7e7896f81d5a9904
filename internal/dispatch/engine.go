package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	logx "seerrgram/pkg/logx"
)

// EventLog is the slice of the store the engine records outcomes to.
type EventLog interface {
	InsertEvent(ctx context.Context, kind string, seerrUserID *int64, payload string) (int64, error)
	MarkEventProcessed(ctx context.Context, id int64, sentDM, sentChannel bool) error
}

// DirectSink delivers a payload to one Telegram user. delivered=false
// with a nil error means the sink had nowhere to send (e.g. user
// unreachable); errors are platform failures.
type DirectSink interface {
	DeliverDirect(ctx context.Context, telegramID int64, p Payload) (bool, error)
}

// BroadcastSink delivers a payload to the configured broadcast channel.
// delivered=false with a nil error means no channel is configured.
type BroadcastSink interface {
	DeliverBroadcast(ctx context.Context, p Payload) (bool, error)
}

// DispatchResult reports which sinks actually delivered.
type DispatchResult struct {
	SentDM      bool
	SentChannel bool
}

// Engine orchestrates one webhook event end to end: classify, record,
// resolve, render, deliver, record outcome.
type Engine struct {
	events    EventLog
	resolver  *Resolver
	renderer  *Renderer
	direct    DirectSink
	broadcast BroadcastSink
	log       logx.Logger
}

func NewEngine(events EventLog, links LinkLookup, direct DirectSink, broadcast BroadcastSink, seerrBaseURL string, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		events:    events,
		resolver:  NewResolver(links, log),
		renderer:  NewRenderer(seerrBaseURL),
		direct:    direct,
		broadcast: broadcast,
		log:       log,
	}
}

// Dispatch processes one raw event. The returned error is non-nil only
// when the event record could not be inserted; sink failures are folded
// into the result, never into the error.
func (en *Engine) Dispatch(ctx context.Context, e RawEvent) (DispatchResult, error) {
	kind, policy := Classify(e)
	log := en.log.With(logx.String("kind", string(kind)))

	account := en.resolver.Resolve(ctx, e, policy)

	var seerrUserID *int64
	if account != nil {
		id := account.SeerrUserID
		seerrUserID = &id
	}

	payload, err := json.Marshal(e)
	if err != nil {
		payload = []byte("{}")
	}
	// The durable id must exist before any delivery attempt; without it
	// there is nothing to record the outcome against.
	eventID, err := en.events.InsertEvent(ctx, string(kind), seerrUserID, string(payload))
	if err != nil {
		return DispatchResult{}, fmt.Errorf("insert event record: %w", err)
	}
	log = log.With(logx.Int64("event_id", eventID))

	if kind == KindUnknown {
		log.Info("unhandled notification type", logx.String("tag", e.Str("notification_type")))
		en.finish(ctx, log, eventID, DispatchResult{})
		return DispatchResult{}, nil
	}

	rendered := en.renderer.Render(e, kind)

	var dmTarget int64
	switch {
	case kind == KindTestNotification:
		// Diagnostic path: the raw chat id is trusted directly, no link
		// required.
		if id, ok := e.Int64(policy.Field); ok {
			dmTarget = id
		}
	case policy.AdminOnly:
		// Broadcast only.
	case account != nil:
		dmTarget = account.TelegramID
	}

	// Every kind is eligible for broadcast; the sink itself reports
	// false when no channel is configured.
	res := en.deliver(ctx, log, rendered, dmTarget)
	en.finish(ctx, log, eventID, res)

	log.Info("event dispatched", logx.Bool("sent_dm", res.SentDM), logx.Bool("sent_channel", res.SentChannel))
	return res, nil
}

// deliver runs the selected sinks concurrently and joins their outcomes.
// A sink error is logged and counted as not delivered; it never affects
// the other sink.
func (en *Engine) deliver(ctx context.Context, log logx.Logger, p Payload, dmTarget int64) DispatchResult {
	var sentDM, sentChannel bool
	var wg sync.WaitGroup

	if dmTarget != 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := en.direct.DeliverDirect(ctx, dmTarget, p)
			if err != nil {
				log.Error("direct delivery failed", logx.Int64("telegram_id", dmTarget), logx.Err(err))
				return
			}
			sentDM = ok
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, err := en.broadcast.DeliverBroadcast(ctx, p)
		if err != nil {
			log.Error("broadcast delivery failed", logx.Err(err))
			return
		}
		sentChannel = ok
	}()

	wg.Wait()
	return DispatchResult{SentDM: sentDM, SentChannel: sentChannel}
}

// finish records the final outcome. Delivery already happened, so a
// bookkeeping failure is logged and tolerated.
func (en *Engine) finish(ctx context.Context, log logx.Logger, eventID int64, res DispatchResult) {
	if err := en.events.MarkEventProcessed(ctx, eventID, res.SentDM, res.SentChannel); err != nil {
		log.Error("failed to record event outcome", logx.Err(err))
	}
}
