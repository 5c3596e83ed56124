package domain

// Message is a single turn in a conversation. Immutable once created;
// ordering within a session is slice order, not a timestamp.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one persisted or in-progress conversation owned by one user.
// An empty ID means the session only exists in memory.
type Session struct {
	ID                 SessionID
	OwnerID            UserID
	Title              string
	Messages           []Message
	LastMessagePreview string
	CreatedAt          Timestamp
	UpdatedAt          Timestamp
}

// Summary is the history-list shape of a session.
type Summary struct {
	ID        SessionID
	Title     string
	Preview   string
	UpdatedAt Timestamp
}

// DefaultTitle is used when a transcript has no user message to derive from.
const DefaultTitle = "New Conversation"

const (
	titleLimit   = 30
	previewLimit = 50
)

// DeriveTitle builds a session title from the first user message: the first
// 30 characters, with "..." appended when the content was longer. The title
// is derived once, at first persistence, and never changes afterwards.
func DeriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > titleLimit {
			return string(runes[:titleLimit]) + "..."
		}
		return m.Content
	}
	return DefaultTitle
}

// DerivePreview builds the history-list preview from the last message: the
// first 50 characters, with "..." appended whenever the original content is
// 50 characters or longer. A message of exactly 50 characters still gets the
// marker. Empty transcripts yield an empty preview.
func DerivePreview(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	runes := []rune(messages[len(messages)-1].Content)
	if len(runes) >= previewLimit {
		return string(runes[:previewLimit]) + "..."
	}
	return string(runes)
}
