package store

import (
	"testing"
	"time"

	"github.com/dukerupert/routiner/internal/model"
)

func TestBackupLifecycle(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))

	b, err := bs.Create("backup-1.db.enc", "routiner/backup-1.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want pending", b.Status)
	}

	if err := bs.UpdateStatus(b.ID, model.BackupStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := bs.UpdateCompleted(b.ID, 4096); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if got.Status != model.BackupStatusCompleted || got.SizeBytes != 4096 {
		t.Errorf("backup = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestBackupFailureMessage(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))
	b, _ := bs.Create("b.db.enc", "routiner/b.db.enc")

	bs.UpdateStatus(b.ID, model.BackupStatusFailed, "upload refused")
	got, _ := bs.GetByID(b.ID)
	if got.ErrorMessage != "upload refused" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func TestBackupListAndRetention(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))
	for _, name := range []string{"a", "b", "c"} {
		if _, err := bs.Create(name, "routiner/"+name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	list, err := bs.List(2)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(list))
	}
	if list[0].Filename != "c" {
		t.Errorf("newest first: got %q", list[0].Filename)
	}

	keys, err := bs.DeleteOlderThan(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete older: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("deleted %d keys, want 3", len(keys))
	}
	list, _ = bs.List(10)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}
