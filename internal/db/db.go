package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"atelier/internal/models"
	_ "modernc.org/sqlite"
)

// Open creates the SQLite database at path (and its parent directory)
// and applies the schema.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			transcript TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL,
			speaker_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			char_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS components (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			prompt TEXT NOT NULL,
			output_schema TEXT NOT NULL,
			ui_code TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at DESC);`,
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func InsertConversation(conn *sql.DB, id, title, transcript string, meta models.ConversationMeta, nowUnix int64) error {
	_, err := conn.Exec(
		`INSERT INTO conversations(id, title, transcript, duration_seconds, speaker_count, word_count, char_count, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		id, title, transcript,
		meta.DurationSeconds, meta.SpeakerCount, meta.WordCount, meta.CharCount,
		nowUnix,
	)
	return err
}

func GetConversation(conn *sql.DB, id string) (string, models.ConversationMeta, error) {
	var transcript string
	var meta models.ConversationMeta
	err := conn.QueryRow(
		"SELECT transcript, duration_seconds, speaker_count, word_count, char_count FROM conversations WHERE id = ?",
		id,
	).Scan(&transcript, &meta.DurationSeconds, &meta.SpeakerCount, &meta.WordCount, &meta.CharCount)
	if err != nil {
		return "", models.ConversationMeta{}, err
	}
	return transcript, meta, nil
}

func ListConversations(conn *sql.DB, limit int) ([]models.ConversationListItem, error) {
	rows, err := conn.Query(
		"SELECT id, title, duration_seconds, speaker_count, word_count, char_count, created_at FROM conversations ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.ConversationListItem, 0, limit)
	for rows.Next() {
		var it models.ConversationListItem
		var createdAt int64
		if err := rows.Scan(&it.ID, &it.Title, &it.Meta.DurationSeconds, &it.Meta.SpeakerCount, &it.Meta.WordCount, &it.Meta.CharCount, &createdAt); err != nil {
			return nil, err
		}
		it.CreatedAt = time.Unix(createdAt, 0)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// PublishComponent persists the caller-accepted draft. Upserts so a
// component can be published repeatedly as it is refined.
func PublishComponent(conn *sql.DB, id, title string, draft models.ComponentDraft, nowUnix int64) error {
	_, err := conn.Exec(
		`INSERT INTO components(id, title, prompt, output_schema, ui_code, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			prompt = excluded.prompt,
			output_schema = excluded.output_schema,
			ui_code = excluded.ui_code,
			updated_at = excluded.updated_at`,
		id, title, draft.Prompt, draft.OutputSchema, draft.UICode, nowUnix,
	)
	return err
}

func GetComponent(conn *sql.DB, id string) (string, models.ComponentDraft, error) {
	var title string
	var draft models.ComponentDraft
	err := conn.QueryRow(
		"SELECT title, prompt, output_schema, ui_code FROM components WHERE id = ?",
		id,
	).Scan(&title, &draft.Prompt, &draft.OutputSchema, &draft.UICode)
	if err != nil {
		return "", models.ComponentDraft{}, err
	}
	return title, draft, nil
}
