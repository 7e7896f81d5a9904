package seerr

// User is a Seerr (Overseerr/Jellyseerr) account.
type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// NotificationSettings is the per-user notification settings subset we
// care about: the Telegram chat id the user configured upstream.
type NotificationSettings struct {
	TelegramChatID string `json:"telegramChatId"`
}

// MediaRequest is one row of a user's request list. Status values follow
// the upstream convention: 1 pending, 2 approved, 3 declined, 4 failed,
// 5 completed.
type MediaRequest struct {
	ID     int64 `json:"id"`
	Status int   `json:"status"`
}

// RequestCounts tallies a user's requests by status.
type RequestCounts struct {
	Total     int
	Pending   int
	Approved  int
	Declined  int
	Failed    int
	Completed int
}

type pagedUsers struct {
	Results []User `json:"results"`
}

type pagedRequests struct {
	Results []MediaRequest `json:"results"`
}
