// Package app composes the bridge: config, logging, storage, the
// Telegram adapter, the Seerr client, the dispatch pipeline, the webhook
// server, the command surface, and maintenance jobs.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"seerrgram/internal/bot"
	"seerrgram/internal/config"
	"seerrgram/internal/dispatch"
	"seerrgram/internal/httpapi"
	"seerrgram/internal/runtime/supervisor"
	"seerrgram/internal/seerr"
	"seerrgram/internal/sink"
	"seerrgram/internal/storage"
	kit "seerrgram/internal/transport"
	"seerrgram/internal/transport/telegram"
	logx "seerrgram/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter kit.Adapter
	seerr   *seerr.Client

	queue  *dispatch.Queue
	server *httpapi.Server
	router *bot.Router
	cmds   *bot.Service
	cron   *cron.Cron

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	apiTimeout, err := config.ParseDurationField("seerr.timeout", cfg.Seerr.Timeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	api, err := seerr.New(seerr.Config{
		BaseURL: cfg.Seerr.BaseURL,
		APIKey:  cfg.Seerr.APIKey,
		Timeout: apiTimeout,
	}, logSvc.Logger().With(logx.String("comp", "seerr")))
	if err != nil {
		return nil, err
	}

	sinks := sink.NewTelegram(adapter, broadcastTarget(store, cfgm),
		logSvc.Logger().With(logx.String("comp", "sink")))

	engine := dispatch.NewEngine(store, store, sinks, sinks, cfg.Seerr.BaseURL,
		logSvc.Logger().With(logx.String("comp", "dispatch")))
	queue := dispatch.NewQueue(engine, cfg.Dispatch.Workers, cfg.Dispatch.QueueSize,
		logSvc.Logger().With(logx.String("comp", "dispatch.queue")))

	health := func(ctx context.Context) map[string]error {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return map[string]error{
			"store": store.Ping(pctx),
			"seerr": api.Status(pctx),
		}
	}
	server := httpapi.New(httpapi.Config{
		Addr:      cfg.Webhook.Addr,
		AuthToken: cfg.Webhook.AuthToken,
	}, queue, health, logSvc.Logger().With(logx.String("comp", "httpapi")))

	cmds := bot.NewService(store, api, logSvc.Logger().With(logx.String("comp", "bot")))
	router := bot.NewRouter(adapter, cfg.Telegram.OwnerUserIDs,
		logSvc.Logger().With(logx.String("comp", "bot.router")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: adapter,
		seerr:   api,
		queue:   queue,
		server:  server,
		router:  router,
		cmds:    cmds,
		updates: make(chan kit.Update, 256),
	}, nil
}

// broadcastTarget resolves the broadcast chat at delivery time: the
// /setchannel runtime override wins over the static config value. An
// empty stored value means broadcasting was explicitly disabled.
func broadcastTarget(store storage.Store, cfgm *config.Manager) sink.BroadcastTargetFunc {
	return func(ctx context.Context) (kit.ChatTarget, bool) {
		if v, err := store.GetSetting(ctx, storage.SettingBroadcastChatID); err == nil {
			if strings.TrimSpace(v) == "" {
				return kit.ChatTarget{}, false
			}
			if chatID, err := strconv.ParseInt(v, 10, 64); err == nil && chatID != 0 {
				thread := 0
				if tv, err := store.GetSetting(ctx, storage.SettingBroadcastThreadID); err == nil {
					thread, _ = strconv.Atoi(tv)
				}
				return kit.ChatTarget{ChatID: chatID, ThreadID: thread}, true
			}
		}
		cfg := cfgm.Get()
		if cfg != nil && cfg.Telegram.NotifyChatID != 0 {
			return kit.ChatTarget{ChatID: cfg.Telegram.NotifyChatID, ThreadID: cfg.Telegram.NotifyThreadID}, true
		}
		return kit.ChatTarget{}, false
	}
}

func validate(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if strings.TrimSpace(cfg.Seerr.BaseURL) == "" {
		return fmt.Errorf("seerr.base_url is required")
	}
	if strings.TrimSpace(cfg.Webhook.Addr) == "" {
		return fmt.Errorf("webhook.addr is required")
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if cfg.Dispatch.Workers < 0 {
		return fmt.Errorf("dispatch.workers must be >= 0")
	}
	if cfg.Dispatch.QueueSize < 0 {
		return fmt.Errorf("dispatch.queue_size must be >= 0")
	}
	for _, f := range []struct{ name, raw string }{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"seerr.timeout", cfg.Seerr.Timeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
	} {
		if _, err := config.ParseDurationField(f.name, f.raw, 0); err != nil {
			return err
		}
	}
	for _, s := range []struct{ name, spec string }{
		{"maintenance.prune_schedule", cfg.Maintenance.PruneSchedule},
		{"maintenance.verify_links_schedule", cfg.Maintenance.VerifyLinksSchedule},
	} {
		if strings.TrimSpace(s.spec) == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.spec); err != nil {
			return fmt.Errorf("%s: invalid cron spec %q: %w", s.name, s.spec, err)
		}
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.logs.Logger().With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.router.Register(a.sup.Context(), a.cmds.Commands())

	a.sup.Go("dispatch.queue", a.queue.Run)
	a.sup.Go("webhook.server", a.server.Run)
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.Run(c, a.updates)
	})

	a.startMaintenance()

	// Hot reload: logging and owner list apply live; everything else
	// needs a restart and says so.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.router.SetOwners(cfg.Telegram.OwnerUserIDs)
	a.log.Info("config reloaded")
}

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	if a.cron != nil {
		cronCtx := a.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(5 * time.Second):
			a.log.Warn("maintenance jobs did not finish in time")
		}
	}

	// Cancel background loops; the http server, queue, and router all
	// unwind from this. The queue drains what is already accepted.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step failed", logx.String("step", name), logx.Err(err))
		}
	}

	step("supervisor.wait", 10*time.Second, a.sup.Wait)
	step("adapter.stop", 5*time.Second, a.adapter.Stop)
	step("store.close", 2*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}
