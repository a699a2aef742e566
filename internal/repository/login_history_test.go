package repository

import (
	"testing"
	"time"

	"github.com/probelink/probelink/internal/domain"
)

func newRepositoryForTest(t *testing.T) LoginHistoryRepository {
	t.Helper()
	db, err := OpenDatabase("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return NewLoginHistoryRepository(db)
}

func TestLoginHistoryRecordAndRecent(t *testing.T) {
	repo := newRepositoryForTest(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	attempts := []domain.LoginAttempt{
		{Username: "admin", DeviceID: "laptop", Outcome: "invalid_credentials", CreatedAt: base},
		{Username: "admin", DeviceID: "laptop", Outcome: "accepted", CreatedAt: base.Add(time.Minute)},
		{Username: "admin", DeviceID: "phone", Outcome: "blocked", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range attempts {
		if err := repo.Record(&attempts[i]); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(recent))
	}
	if recent[0].Outcome != "blocked" || recent[2].Outcome != "invalid_credentials" {
		t.Fatalf("attempts should be newest first, got %s .. %s", recent[0].Outcome, recent[2].Outcome)
	}
}

func TestLoginHistoryRecentHonorsLimit(t *testing.T) {
	repo := newRepositoryForTest(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		attempt := domain.LoginAttempt{Username: "admin", Outcome: "accepted", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := repo.Record(&attempt); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := repo.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(recent))
	}
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDatabase("oracle", "dsn"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
