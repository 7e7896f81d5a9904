package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "seerrgram/pkg/logx"
)

// startMaintenance schedules the housekeeping jobs: pruning processed
// webhook events past retention, and re-checking stored identity links
// against Seerr. Both are optional; an empty schedule disables the job.
func (a *App) startMaintenance() {
	cfg := a.cfgm.Get()
	if cfg == nil {
		return
	}
	mc := cfg.Maintenance
	if strings.TrimSpace(mc.PruneSchedule) == "" && strings.TrimSpace(mc.VerifyLinksSchedule) == "" {
		return
	}

	log := a.logs.Logger().With(logx.String("comp", "maintenance"))
	a.cron = cron.New()

	if spec := strings.TrimSpace(mc.PruneSchedule); spec != "" {
		retention := mc.RetentionDays
		if retention <= 0 {
			retention = 30
		}
		_, err := a.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			cutoff := time.Now().AddDate(0, 0, -retention)
			n, err := a.store.PruneEvents(ctx, cutoff)
			if err != nil {
				log.Error("event prune failed", logx.Err(err))
				return
			}
			log.Info("event log pruned", logx.Int64("removed", n), logx.Time("cutoff", cutoff))
		})
		if err != nil {
			log.Error("prune job not scheduled", logx.Err(err))
		}
	}

	if spec := strings.TrimSpace(mc.VerifyLinksSchedule); spec != "" {
		_, err := a.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			a.verifyLinks(ctx, log)
		})
		if err != nil {
			log.Error("link verification job not scheduled", logx.Err(err))
		}
	}

	a.cron.Start()
	log.Info("maintenance jobs scheduled")
}

// verifyLinks checks each stored link against the user's current Seerr
// notification settings and logs drift. Links are never auto-removed; an
// operator decides what a mismatch means.
func (a *App) verifyLinks(ctx context.Context, log logx.Logger) {
	links, err := a.store.Links(ctx)
	if err != nil {
		log.Error("link verification failed", logx.Err(err))
		return
	}

	var drifted int
	for _, l := range links {
		s, err := a.seerr.NotificationSettings(ctx, l.SeerrUserID)
		if err != nil {
			log.Warn("settings fetch failed",
				logx.Int64("seerr_user_id", l.SeerrUserID), logx.Err(err))
			continue
		}
		want := strconv.FormatInt(l.TelegramID, 10)
		if strings.TrimSpace(s.TelegramChatID) != want {
			drifted++
			log.Warn("link no longer matches seerr settings",
				logx.Int64("telegram_id", l.TelegramID),
				logx.Int64("seerr_user_id", l.SeerrUserID),
				logx.String("seerr_chat_id", s.TelegramChatID),
			)
		}
	}
	log.Info("link verification complete",
		logx.Int("links", len(links)), logx.Int("drifted", drifted))
}
