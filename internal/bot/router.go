// Package bot is the Telegram command surface: identity linking and the
// small operator toolkit.
package bot

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	kit "seerrgram/internal/transport"
	logx "seerrgram/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Description string
	Usage       string
	OwnerOnly   bool
	Handle      HandlerFunc
}

type Request struct {
	Chat         kit.ChatTarget
	FromID       int64
	FromUsername string
	Args         []string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends an HTML-formatted response back to the requesting chat.
func (r *Request) Reply(ctx context.Context, text string) {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	if err != nil {
		r.Logger.Warn("reply failed", logx.Err(err))
	}
}

// Router parses incoming updates into commands and runs handlers on a
// small worker pool so one slow handler never blocks the update loop.
type Router struct {
	adapter kit.Adapter
	log     logx.Logger

	mu     sync.RWMutex
	cmds   map[string]Command
	owners []int64

	jobs chan func()
}

func NewRouter(adapter kit.Adapter, owners []int64, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		adapter: adapter,
		log:     log,
		cmds:    map[string]Command{},
		owners:  append([]int64(nil), owners...),
		jobs:    make(chan func(), 64),
	}
}

// Register installs the command set and pushes the menu to Telegram when
// the adapter supports it.
func (r *Router) Register(ctx context.Context, cmds []Command) {
	m := make(map[string]Command, len(cmds))
	for _, c := range cmds {
		name := strings.TrimSpace(strings.ToLower(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		m[name] = c
	}

	r.mu.Lock()
	r.cmds = m
	r.mu.Unlock()

	if up, ok := r.adapter.(kit.CommandMenuUpdater); ok {
		menu := make([]kit.BotCommand, 0, len(cmds))
		for _, c := range cmds {
			if c.OwnerOnly {
				continue
			}
			menu = append(menu, kit.BotCommand{Command: c.Name, Description: c.Description})
		}
		mctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := up.UpdateMenuCommands(mctx, menu); err != nil {
			r.log.Warn("menu update failed", logx.Err(err))
		}
	}
}

// SetOwners swaps the owner list, safe during config hot reload.
func (r *Router) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	r.mu.Lock()
	r.owners = cp
	r.mu.Unlock()
}

// Run consumes updates until ctx is cancelled.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) error {
	const workers = 2
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range r.jobs {
				func() {
					defer func() {
						if p := recover(); p != nil {
							r.log.Error("panic in command handler", logx.Any("panic", p), logx.String("stack", string(debug.Stack())))
						}
					}()
					job()
				}()
			}
		}()
	}
	defer func() {
		close(r.jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(ctx, up)
		}
	}
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	parts := strings.Fields(text)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	args := parts[1:]

	r.mu.RLock()
	cmd, ok := r.cmds[name]
	owners := r.owners
	r.mu.RUnlock()

	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	if !ok {
		// Stay quiet in groups; unknown text there is rarely meant for us.
		if !msg.IsGroup {
			_, _ = r.adapter.SendText(ctx, chat, "Unknown command. Try /help", nil)
		}
		return
	}
	if cmd.OwnerOnly && !isOwner(msg.FromID, owners) {
		_, _ = r.adapter.SendText(ctx, chat, "This command is owner-only.", nil)
		return
	}

	req := &Request{
		Chat:         chat,
		FromID:       msg.FromID,
		FromUsername: msg.FromUsername,
		Args:         args,
		Adapter:      r.adapter,
		Logger: r.log.With(
			logx.String("cmd", name),
			logx.Int64("from_id", msg.FromID),
			logx.Int64("chat_id", msg.ChatID),
		),
	}

	select {
	case r.jobs <- func() {
		hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := cmd.Handle(hctx, req); err != nil {
			req.Logger.Error("command failed", logx.Err(err))
			req.Reply(hctx, "Something went wrong, try again later.")
		}
	}:
	default:
		_, _ = r.adapter.SendText(ctx, chat, "Busy, try again shortly.", nil)
	}
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
