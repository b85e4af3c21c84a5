package transcript

import (
	"context"
	"database/sql"
	"fmt"

	"atelier/internal/db"
	"atelier/internal/models"
)

// Store resolves a conversation id to its full readable transcript and
// metadata. The agent core only ever consumes a character-bounded slice.
type Store interface {
	Transcript(ctx context.Context, conversationID string) (string, models.ConversationMeta, error)
}

// SQLiteStore reads transcripts from the conversations table.
type SQLiteStore struct {
	conn *sql.DB
}

func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{conn: conn}
}

func (s *SQLiteStore) Transcript(ctx context.Context, conversationID string) (string, models.ConversationMeta, error) {
	text, meta, err := db.GetConversation(s.conn, conversationID)
	if err != nil {
		return "", models.ConversationMeta{}, fmt.Errorf("load transcript %s: %w", conversationID, err)
	}
	return text, meta, nil
}

// Slice bounds a transcript to maxChars and reports how much of the full
// text was returned, so the model can decide whether to ask for more.
type Slice struct {
	Text               string `json:"transcript"`
	TotalCharacters    int    `json:"totalCharacters"`
	ReturnedCharacters int    `json:"returnedCharacters"`
	PercentageFetched  string `json:"percentageFetched"`
	Truncated          bool   `json:"truncated"`
}

const DefaultMaxChars = 5000

// Bound counts characters, not bytes, and cuts on a rune boundary so a
// truncated multibyte transcript is still valid UTF-8.
func Bound(full string, maxChars int) Slice {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	runes := []rune(full)
	total := len(runes)
	text := full
	returned := total
	if total > maxChars {
		text = string(runes[:maxChars])
		returned = maxChars
	}

	pct := 100
	if total > 0 && returned < total {
		pct = returned * 100 / total
	}

	return Slice{
		Text:               text,
		TotalCharacters:    total,
		ReturnedCharacters: returned,
		PercentageFetched:  fmt.Sprintf("%d%%", pct),
		Truncated:          returned < total,
	}
}
