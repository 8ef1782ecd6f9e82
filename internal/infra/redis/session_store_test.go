package redis

import (
	"testing"
	"time"

	"exam-session-service/internal/session"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	ctrl, err := session.New(session.Config{
		ID:              "s1",
		ExamID:          "exam-1",
		Questions:       sampleExam().Questions,
		DurationSeconds: 60,
		Logger:          zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer ctrl.Close()

	store.Put(ctrl)
	if !mr.Exists("exam:session:s1") {
		t.Fatalf("expected redis key to be set")
	}
	if got := mr.HGet("exam:session:s1", "exam_id"); got != "exam-1" {
		t.Fatalf("expected exam id in hash, got %q", got)
	}
	if got := mr.HGet("exam:session:s1", "status"); got != "active" {
		t.Fatalf("expected active status, got %q", got)
	}
	if ttl := mr.TTL("exam:session:s1"); ttl != 2*time.Minute {
		t.Fatalf("expected ttl of duration plus retention, got %v", ttl)
	}
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session in local map")
	}

	store.Delete("s1")
	if mr.Exists("exam:session:s1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed from local map")
	}
}
