package dispatch

// RecipientPolicy describes where a kind's notifiable identity lives in
// the raw payload. AdminOnly kinds have no personal recipient and go to
// the broadcast channel only.
type RecipientPolicy struct {
	// Field is the raw payload key carrying the recipient's Telegram
	// chat id. Empty means no personal recipient.
	Field string
	// ExpectedField, when set, names a second key that should carry the
	// same identity; a disagreement is logged as a mismatch.
	ExpectedField string
	AdminOnly     bool
}

type classification struct {
	kind   Kind
	policy RecipientPolicy
}

const (
	fieldNotifyUser  = "notifyuser_settings_telegramChatId"
	fieldReportedBy  = "reportedBy_settings_telegramChatId"
	fieldCommentedBy = "commentedBy_settings_telegramChatId"
)

var classifications = map[string]classification{
	"MEDIA_PENDING":       {KindRequestPending, RecipientPolicy{AdminOnly: true}},
	"MEDIA_AUTO_APPROVED": {KindRequestAutoApproved, RecipientPolicy{AdminOnly: true}},
	"MEDIA_APPROVED":      {KindRequestApproved, RecipientPolicy{Field: fieldNotifyUser, ExpectedField: fieldNotifyUser}},
	"MEDIA_DECLINED":      {KindRequestDeclined, RecipientPolicy{Field: fieldNotifyUser, ExpectedField: fieldNotifyUser}},
	"MEDIA_AVAILABLE":     {KindRequestAvailable, RecipientPolicy{Field: fieldNotifyUser, ExpectedField: fieldNotifyUser}},
	"MEDIA_FAILED":        {KindRequestFailed, RecipientPolicy{AdminOnly: true}},
	"ISSUE_CREATED":       {KindIssueReported, RecipientPolicy{Field: fieldReportedBy, ExpectedField: fieldNotifyUser}},
	"ISSUE_COMMENT":       {KindIssueComment, RecipientPolicy{Field: fieldCommentedBy, ExpectedField: fieldNotifyUser}},
	"ISSUE_RESOLVED":      {KindIssueResolved, RecipientPolicy{Field: fieldReportedBy, ExpectedField: fieldNotifyUser}},
	"ISSUE_REOPENED":      {KindIssueReopened, RecipientPolicy{Field: fieldReportedBy, ExpectedField: fieldNotifyUser}},
	"TEST_NOTIFICATION":   {KindTestNotification, RecipientPolicy{Field: fieldNotifyUser}},
}

// Classify maps the event's notification_type tag to its kind and
// recipient policy. Unknown tags are a handled case, not an error.
func Classify(e RawEvent) (Kind, RecipientPolicy) {
	c, ok := classifications[e.Str("notification_type")]
	if !ok {
		return KindUnknown, RecipientPolicy{}
	}
	return c.kind, c.policy
}
