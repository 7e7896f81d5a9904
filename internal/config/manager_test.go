package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [1, 2]
  notify_chat_id: -100123
seerr:
  base_url: "https://seerr.example"
  api_key: "key"
  timeout: "5s"
webhook:
  addr: ":8080"
  auth_token: "secret"
dispatch:
  workers: 4
  queue_size: 128
storage:
  path: "/tmp/seerrgram.db"
logging:
  level: "info"
  console: true
  file:
    enabled: false
    path: ""
maintenance:
  prune_schedule: "0 4 * * *"
  retention_days: 14
`

func TestLoadValid(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 || cfg.Telegram.OwnerUserIDs[1] != 2 {
		t.Errorf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Telegram.NotifyChatID != -100123 {
		t.Errorf("notify chat = %d", cfg.Telegram.NotifyChatID)
	}
	if cfg.Dispatch.Workers != 4 || cfg.Dispatch.QueueSize != 128 {
		t.Errorf("dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Maintenance.PruneSchedule != "0 4 * * *" || cfg.Maintenance.RetentionDays != 14 {
		t.Errorf("maintenance = %+v", cfg.Maintenance)
	}
	if got := m.Get(); got != cfg {
		t.Error("Get returned a different config than Load committed")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, validYAML+"\nunknown_section:\n  x: 1\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	d, err := ParseDurationField("x", "", 7*time.Second)
	if err != nil || d != 7*time.Second {
		t.Errorf("empty = (%v, %v), want default", d, err)
	}
	d, err = ParseDurationField("x", "90s", 0)
	if err != nil || d != 90*time.Second {
		t.Errorf("90s = (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "not-a-duration", 0); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, validYAML))
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}

	sub := m.Subscribe(1)
	cfg := m.Get()
	m.publish(cfg)
	select {
	case got := <-sub:
		if got != cfg {
			t.Error("subscriber received a different config")
		}
	case <-time.After(time.Second):
		t.Fatal("no config delivered")
	}

	// A full buffer drops the oldest and keeps the newest.
	newer := &Config{}
	m.publish(cfg)
	m.publish(newer)
	select {
	case got := <-sub:
		if got != newer {
			t.Error("expected the newest config after overflow")
		}
	case <-time.After(time.Second):
		t.Fatal("no config delivered after overflow")
	}

	m.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Error("channel still open after Unsubscribe")
	}
}
