// Package seerr is a minimal REST client for the upstream media-request
// service (Overseerr/Jellyseerr compatible).
package seerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	logx "seerrgram/pkg/logx"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // 0 means default (10s)
}

type Client struct {
	http *resty.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("seerr base_url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := resty.New().
		SetBaseURL(base+"/api/v1").
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(cfg.APIKey) != "" {
		c.SetHeader("X-Api-Key", cfg.APIKey)
	}
	return &Client{http: c, log: log}, nil
}

// Status checks that the upstream API is reachable.
func (c *Client) Status(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/status")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("seerr status: http %d", resp.StatusCode())
	}
	return nil
}

// Users lists all upstream users. The endpoint historically returned
// either a paged object or a bare array; both are accepted.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("take", "200").
		Get("/user")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("seerr list users: http %d", resp.StatusCode())
	}

	body := resp.Body()
	var paged pagedUsers
	if err := json.Unmarshal(body, &paged); err == nil && paged.Results != nil {
		return paged.Results, nil
	}
	var plain []User
	if err := json.Unmarshal(body, &plain); err != nil {
		return nil, fmt.Errorf("seerr list users: unexpected response: %w", err)
	}
	return plain, nil
}

func (c *Client) User(ctx context.Context, id int64) (*User, error) {
	var u User
	resp, err := c.http.R().SetContext(ctx).
		SetResult(&u).
		Get(fmt.Sprintf("/user/%d", id))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("seerr get user %d: http %d", id, resp.StatusCode())
	}
	return &u, nil
}

// NotificationSettings fetches a user's notification settings (the
// Telegram chat id lives there).
func (c *Client) NotificationSettings(ctx context.Context, userID int64) (*NotificationSettings, error) {
	var s NotificationSettings
	resp, err := c.http.R().SetContext(ctx).
		SetResult(&s).
		Get(fmt.Sprintf("/user/%d/settings/notifications", userID))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("seerr user %d settings: http %d", userID, resp.StatusCode())
	}
	return &s, nil
}

// VerifyTelegramID scans upstream users for one whose notification
// settings carry the given Telegram chat id. Returns nil when no user
// matches.
func (c *Client) VerifyTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	want := strconv.FormatInt(telegramID, 10)
	for i := range users {
		u := users[i]
		if u.ID == 0 {
			continue
		}
		s, err := c.NotificationSettings(ctx, u.ID)
		if err != nil {
			c.log.Debug("settings fetch failed during verification", logx.Int64("user", u.ID), logx.Err(err))
			continue
		}
		if strings.TrimSpace(s.TelegramChatID) == want {
			return &u, nil
		}
	}
	return nil, nil
}

// RequestCounts tallies a user's media requests by status.
func (c *Client) RequestCounts(ctx context.Context, userID int64) (RequestCounts, error) {
	var paged pagedRequests
	resp, err := c.http.R().SetContext(ctx).
		SetResult(&paged).
		SetQueryParam("take", "100").
		Get(fmt.Sprintf("/user/%d/requests", userID))
	if err != nil {
		return RequestCounts{}, err
	}
	if resp.IsError() {
		return RequestCounts{}, fmt.Errorf("seerr user %d requests: http %d", userID, resp.StatusCode())
	}

	var rc RequestCounts
	for _, r := range paged.Results {
		rc.Total++
		switch r.Status {
		case 1:
			rc.Pending++
		case 2:
			rc.Approved++
		case 3:
			rc.Declined++
		case 4:
			rc.Failed++
		case 5:
			rc.Completed++
		}
	}
	return rc, nil
}
