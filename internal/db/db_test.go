package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"atelier/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "nested", "atelier.db"))
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConversationRoundTrip(t *testing.T) {
	conn := openTestDB(t)

	meta := models.ConversationMeta{
		DurationSeconds: 120,
		SpeakerCount:    2,
		WordCount:       42,
		CharCount:       256,
	}
	now := time.Now().Unix()
	if err := InsertConversation(conn, "conv-1", "Standup", "alice: hi\nbob: hello", meta, now); err != nil {
		t.Fatalf("InsertConversation: %v", err)
	}

	text, gotMeta, err := GetConversation(conn, "conv-1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if text != "alice: hi\nbob: hello" {
		t.Errorf("transcript = %q", text)
	}
	if gotMeta != meta {
		t.Errorf("meta = %+v, want %+v", gotMeta, meta)
	}
}

func TestGetConversationMissing(t *testing.T) {
	conn := openTestDB(t)

	_, _, err := GetConversation(conn, "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestListConversationsNewestFirst(t *testing.T) {
	conn := openTestDB(t)

	base := time.Now().Unix()
	for i, id := range []string{"old", "mid", "new"} {
		if err := InsertConversation(conn, id, "title "+id, "text", models.ConversationMeta{WordCount: i}, base+int64(i)); err != nil {
			t.Fatalf("InsertConversation(%s): %v", id, err)
		}
	}

	items, err := ListConversations(conn, 10)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].ID != "new" || items[2].ID != "old" {
		t.Errorf("order = %s, %s, %s", items[0].ID, items[1].ID, items[2].ID)
	}
	if items[0].CreatedAt.Unix() != base+2 {
		t.Errorf("CreatedAt = %d, want %d", items[0].CreatedAt.Unix(), base+2)
	}

	limited, err := ListConversations(conn, 2)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited items = %d, want 2", len(limited))
	}
}

func TestPublishComponentUpsert(t *testing.T) {
	conn := openTestDB(t)

	draft := models.ComponentDraft{Prompt: "p1", OutputSchema: "{}", UICode: "<div/>"}
	if err := PublishComponent(conn, "comp-1", "Summary card", draft, time.Now().Unix()); err != nil {
		t.Fatalf("PublishComponent: %v", err)
	}

	title, got, err := GetComponent(conn, "comp-1")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if title != "Summary card" || got != draft {
		t.Errorf("got %q %+v", title, got)
	}

	draft.Prompt = "p2"
	if err := PublishComponent(conn, "comp-1", "Summary card v2", draft, time.Now().Unix()); err != nil {
		t.Fatalf("PublishComponent (update): %v", err)
	}
	title, got, err = GetComponent(conn, "comp-1")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if title != "Summary card v2" || got.Prompt != "p2" {
		t.Errorf("after upsert got %q %+v", title, got)
	}
}

func TestGetComponentMissing(t *testing.T) {
	conn := openTestDB(t)

	_, _, err := GetComponent(conn, "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}
