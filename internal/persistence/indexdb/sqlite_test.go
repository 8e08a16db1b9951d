package indexdb

import (
	"path/filepath"
	"testing"
)

func TestIndex_SessionLifecycleAndChat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.RecordJoin("p1", "alice", 100)
	idx.RecordJoin("p2", "", 150)
	idx.RecordName("p2", "bob", 160)
	idx.RecordChat("p1", "moro", 200)
	idx.RecordChat("p2", "hei", 210)
	idx.RecordLeave("p1", 300)
	// Close drains the queue before shutting the db down.
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	sessions, err := idx.Sessions(10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions: got %d want 2", len(sessions))
	}
	// Newest first.
	if sessions[0].ID != "p2" || sessions[0].Name != "bob" || sessions[0].LeftAt != 0 {
		t.Fatalf("p2 row: %+v", sessions[0])
	}
	if sessions[1].ID != "p1" || sessions[1].LeftAt != 300 {
		t.Fatalf("p1 row: %+v", sessions[1])
	}

	chat, err := idx.ChatHistory(10)
	if err != nil {
		t.Fatalf("ChatHistory: %v", err)
	}
	if len(chat) != 2 || chat[0].Message != "moro" || chat[1].Message != "hei" {
		t.Fatalf("chat: %+v", chat)
	}
}

func TestIndex_RejoinClearsLeftAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.RecordJoin("p1", "alice", 100)
	idx.RecordLeave("p1", 200)
	idx.RecordJoin("p1", "alice", 300)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	sessions, err := idx.Sessions(10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].JoinedAt != 300 || sessions[0].LeftAt != 0 {
		t.Fatalf("rejoin row: %+v", sessions)
	}
}
