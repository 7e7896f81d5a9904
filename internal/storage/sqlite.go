package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "seerrgram/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (creating if necessary) the SQLite store at cfg.Path and
// applies migrations.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if log.IsZero() {
		log = logx.Nop()
	}
	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) SaveLink(ctx context.Context, l Link) error {
	if l.LinkedAt.IsZero() {
		l.LinkedAt = time.Now()
	}
	// One active Seerr account per Telegram user: replacing a link
	// removes that user's older rows rather than accumulating them.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE telegram_id = ?`, l.TelegramID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO links(telegram_id, seerr_user_id, seerr_username, linked_at) VALUES(?,?,?,?)`,
		l.TelegramID, l.SeerrUserID, l.SeerrUsername, l.LinkedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) DeleteLink(ctx context.Context, telegramID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE telegram_id = ?`, telegramID)
	return err
}

func (s *sqliteStore) LinkByTelegramID(ctx context.Context, telegramID int64) (Link, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT telegram_id, seerr_user_id, seerr_username, linked_at
		 FROM links WHERE telegram_id = ?
		 ORDER BY linked_at DESC LIMIT 1`, telegramID)
	return scanLink(row)
}

func (s *sqliteStore) LinkBySeerrUser(ctx context.Context, seerrUserID int64) (Link, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT telegram_id, seerr_user_id, seerr_username, linked_at
		 FROM links WHERE seerr_user_id = ?
		 ORDER BY linked_at DESC LIMIT 1`, seerrUserID)
	return scanLink(row)
}

func scanLink(row *sql.Row) (Link, error) {
	var l Link
	var linkedAt string
	err := row.Scan(&l.TelegramID, &l.SeerrUserID, &l.SeerrUsername, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}
	l.LinkedAt, _ = time.Parse(time.RFC3339Nano, linkedAt)
	return l, nil
}

func (s *sqliteStore) Links(ctx context.Context) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT telegram_id, seerr_user_id, seerr_username, linked_at
		 FROM links ORDER BY linked_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		var linkedAt string
		if err := rows.Scan(&l.TelegramID, &l.SeerrUserID, &l.SeerrUsername, &linkedAt); err != nil {
			return nil, err
		}
		l.LinkedAt, _ = time.Parse(time.RFC3339Nano, linkedAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqliteStore) InsertEvent(ctx context.Context, kind string, seerrUserID *int64, payload string) (int64, error) {
	var uid any
	if seerrUserID != nil {
		uid = *seerrUserID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_events(event_kind, seerr_user_id, payload, created_at) VALUES(?,?,?,?)`,
		kind, uid, payload, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) MarkEventProcessed(ctx context.Context, id int64, sentDM, sentChannel bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE webhook_events SET processed = 1, sent_dm = ?, sent_channel = ? WHERE id = ?`,
		boolInt(sentDM), boolInt(sentChannel), id,
	)
	return err
}

func (s *sqliteStore) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_kind, seerr_user_id, payload, processed, sent_dm, sent_channel, created_at
		 FROM webhook_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		var uid sql.NullInt64
		var processed, sentDM, sentChannel int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Kind, &uid, &r.Payload, &processed, &sentDM, &sentChannel, &createdAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			v := uid.Int64
			r.SeerrUserID = &v
		}
		r.Processed = processed != 0
		r.SentDM = sentDM != 0
		r.SentChannel = sentChannel != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM webhook_events WHERE processed = 1 AND created_at < ?`,
		olderThan.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
