package config

type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Seerr       SeerrConfig       `json:"seerr"`
	Webhook     WebhookConfig     `json:"webhook"`
	Dispatch    DispatchConfig    `json:"dispatch"`
	Storage     StorageConfig     `json:"storage"`
	Logging     LoggingConfig     `json:"logging"`
	Maintenance MaintenanceConfig `json:"maintenance,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`

	// NotifyChatID is the broadcast channel for admin-visible notifications.
	// 0 disables channel delivery (DM-only operation). It can be overridden
	// at runtime via /setchannel, which persists to storage.
	NotifyChatID   int64 `json:"notify_chat_id"`
	NotifyThreadID int   `json:"notify_thread_id,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`

	// RatePerSec caps outgoing Telegram sends. 0 means the default (25).
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type SeerrConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	// Timeout is a Go duration string applied per API request.
	Timeout string `json:"timeout,omitempty"`
}

type WebhookConfig struct {
	Addr string `json:"addr"`
	// AuthToken, when set, must match the Authorization header of inbound
	// webhook requests verbatim.
	AuthToken string `json:"auth_token,omitempty"`
}

// DispatchConfig controls the webhook dispatch worker pool.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 256
type DispatchConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`
}

type StorageConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string passed to SQLite.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// MaintenanceConfig controls background housekeeping jobs.
//
// Schedules are standard 5-field cron specs. Empty disables the job.
type MaintenanceConfig struct {
	PruneSchedule string `json:"prune_schedule,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
	// VerifyLinksSchedule re-checks stored identity links against Seerr
	// user settings and logs drift.
	VerifyLinksSchedule string `json:"verify_links_schedule,omitempty"`
}
