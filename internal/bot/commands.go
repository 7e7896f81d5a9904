package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"seerrgram/internal/seerr"
	"seerrgram/internal/storage"
	logx "seerrgram/pkg/logx"
	"seerrgram/pkg/tgui"
)

// seerrAPI is the slice of the Seerr client the command surface uses.
type seerrAPI interface {
	Status(ctx context.Context) error
	VerifyTelegramID(ctx context.Context, telegramID int64) (*seerr.User, error)
	RequestCounts(ctx context.Context, userID int64) (seerr.RequestCounts, error)
}

// Service owns the command handlers and their collaborators.
type Service struct {
	store storage.Store
	seerr seerrAPI
	log   logx.Logger
}

func NewService(store storage.Store, api seerrAPI, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, seerr: api, log: log}
}

// Commands returns the full command set for registration.
func (s *Service) Commands() []Command {
	cmds := []Command{
		{Name: "start", Description: "What this bot does", Handle: s.handleHelp},
		{Name: "help", Description: "List available commands", Handle: s.handleHelp},
		{Name: "link", Description: "Link your Telegram account to Seerr", Usage: "/link", Handle: s.handleLink},
		{Name: "unlink", Description: "Remove your Seerr link", Usage: "/unlink", Handle: s.handleUnlink},
		{Name: "status", Description: "Show your link and request stats", Usage: "/status", Handle: s.handleStatus},
		{Name: "setchannel", Description: "Use this chat for broadcast notifications", Usage: "/setchannel [off]", OwnerOnly: true, Handle: s.handleSetChannel},
		{Name: "recent", Description: "Show recent webhook events", Usage: "/recent [n]", OwnerOnly: true, Handle: s.handleRecent},
	}
	return cmds
}

func (s *Service) handleHelp(ctx context.Context, req *Request) error {
	cmds := s.Commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	var b strings.Builder
	b.WriteString(tgui.B("seerrgram").String())
	b.WriteString("\nSeerr notifications, delivered to Telegram.\n\n")
	for _, c := range cmds {
		if c.Name == "start" {
			continue
		}
		line := tgui.JoinH(" ", tgui.Code("/"+c.Name), tgui.Esc(c.Description))
		if c.OwnerOnly {
			line = tgui.JoinH(" ", line, tgui.I("(owner)"))
		}
		b.WriteString(line.String())
		b.WriteString("\n")
	}
	req.Reply(ctx, b.String())
	return nil
}

func (s *Service) handleLink(ctx context.Context, req *Request) error {
	if existing, err := s.store.LinkByTelegramID(ctx, req.FromID); err == nil {
		req.Reply(ctx, tgui.JoinH(" ",
			tgui.Esc("Already linked to Seerr user"),
			tgui.B(existing.SeerrUsername)).String())
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("link lookup: %w", err)
	}

	if err := s.seerr.Status(ctx); err != nil {
		req.Reply(ctx, "Can't reach Seerr right now, try again later.")
		return fmt.Errorf("seerr status: %w", err)
	}

	user, err := s.seerr.VerifyTelegramID(ctx, req.FromID)
	if err != nil {
		return fmt.Errorf("verify telegram id: %w", err)
	}
	if user == nil {
		req.Reply(ctx,
			"Your Telegram ID was not found in Seerr.\n"+
				"Add it under Settings → Notifications → Telegram in your Seerr profile, then run /link again.\n"+
				tgui.JoinH(" ", tgui.Esc("Your ID:"), tgui.Code(strconv.FormatInt(req.FromID, 10))).String())
		return nil
	}

	name := user.DisplayName
	if name == "" {
		name = user.Email
	}
	link := storage.Link{
		TelegramID:    req.FromID,
		SeerrUserID:   user.ID,
		SeerrUsername: name,
		LinkedAt:      time.Now(),
	}
	if err := s.store.SaveLink(ctx, link); err != nil {
		return fmt.Errorf("save link: %w", err)
	}

	s.log.Info("account linked",
		logx.Int64("telegram_id", req.FromID),
		logx.Int64("seerr_user_id", user.ID),
	)
	req.Reply(ctx, tgui.JoinH(" ",
		tgui.Esc("Linked to Seerr user"),
		tgui.B(name),
		tgui.Esc("You will now receive request updates here.")).String())
	return nil
}

func (s *Service) handleUnlink(ctx context.Context, req *Request) error {
	if _, err := s.store.LinkByTelegramID(ctx, req.FromID); errors.Is(err, storage.ErrNotFound) {
		req.Reply(ctx, "Nothing to unlink.")
		return nil
	} else if err != nil {
		return fmt.Errorf("link lookup: %w", err)
	}
	if err := s.store.DeleteLink(ctx, req.FromID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	s.log.Info("account unlinked", logx.Int64("telegram_id", req.FromID))
	req.Reply(ctx, "Unlinked. You will no longer receive direct notifications.")
	return nil
}

func (s *Service) handleStatus(ctx context.Context, req *Request) error {
	link, err := s.store.LinkByTelegramID(ctx, req.FromID)
	if errors.Is(err, storage.ErrNotFound) {
		req.Reply(ctx, "Not linked. Run /link to connect your Seerr account.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("link lookup: %w", err)
	}

	var b strings.Builder
	b.WriteString(tgui.JoinH(" ", tgui.Esc("Linked to"), tgui.B(link.SeerrUsername)).String())
	b.WriteString("\n")
	b.WriteString(tgui.JoinH(" ", tgui.Esc("Since:"), tgui.Esc(link.LinkedAt.Format("2006-01-02"))).String())

	if rc, err := s.seerr.RequestCounts(ctx, link.SeerrUserID); err == nil {
		b.WriteString("\n\n")
		b.WriteString(tgui.B("Requests").String())
		b.WriteString(fmt.Sprintf("\nTotal: %d", rc.Total))
		b.WriteString(fmt.Sprintf("\nPending: %d  Approved: %d", rc.Pending, rc.Approved))
		b.WriteString(fmt.Sprintf("\nCompleted: %d  Declined: %d  Failed: %d", rc.Completed, rc.Declined, rc.Failed))
	} else {
		s.log.Warn("request counts unavailable", logx.Int64("seerr_user_id", link.SeerrUserID), logx.Err(err))
	}

	req.Reply(ctx, b.String())
	return nil
}

func (s *Service) handleSetChannel(ctx context.Context, req *Request) error {
	if len(req.Args) > 0 && strings.EqualFold(req.Args[0], "off") {
		if err := s.store.SetSetting(ctx, storage.SettingBroadcastChatID, ""); err != nil {
			return fmt.Errorf("clear broadcast chat: %w", err)
		}
		req.Reply(ctx, "Broadcast notifications disabled.")
		return nil
	}

	if err := s.store.SetSetting(ctx, storage.SettingBroadcastChatID,
		strconv.FormatInt(req.Chat.ChatID, 10)); err != nil {
		return fmt.Errorf("save broadcast chat: %w", err)
	}
	if err := s.store.SetSetting(ctx, storage.SettingBroadcastThreadID,
		strconv.Itoa(req.Chat.ThreadID)); err != nil {
		return fmt.Errorf("save broadcast thread: %w", err)
	}
	s.log.Info("broadcast chat updated",
		logx.Int64("chat_id", req.Chat.ChatID),
		logx.Int("thread_id", req.Chat.ThreadID),
	)
	req.Reply(ctx, "This chat now receives broadcast notifications.")
	return nil
}

func (s *Service) handleRecent(ctx context.Context, req *Request) error {
	limit := 10
	if len(req.Args) > 0 {
		if n, err := strconv.Atoi(req.Args[0]); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	events, err := s.store.RecentEvents(ctx, limit)
	if err != nil {
		return fmt.Errorf("recent events: %w", err)
	}
	if len(events) == 0 {
		req.Reply(ctx, "No webhook events recorded yet.")
		return nil
	}

	var b strings.Builder
	b.WriteString(tgui.B("Recent events").String())
	for _, ev := range events {
		flags := make([]string, 0, 2)
		if ev.SentDM {
			flags = append(flags, "dm")
		}
		if ev.SentChannel {
			flags = append(flags, "channel")
		}
		sent := "none"
		if len(flags) > 0 {
			sent = strings.Join(flags, "+")
		}
		if !ev.Processed {
			sent = "pending"
		}
		b.WriteString("\n")
		b.WriteString(tgui.JoinH(" ",
			tgui.Code(fmt.Sprintf("#%d", ev.ID)),
			tgui.Esc(ev.Kind),
			tgui.Esc(ev.CreatedAt.Format("01-02 15:04")),
			tgui.I(sent)).String())
	}
	req.Reply(ctx, b.String())
	return nil
}
