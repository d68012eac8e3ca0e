package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"sdportal/internal/api"
	"sdportal/internal/ledger"
	"sdportal/internal/testsupport"
)

func record(t *testing.T, store *ledger.Store, taskID string, numImages int) *ledger.Entry {
	t.Helper()
	entry, err := store.Record(context.Background(), ledger.Entry{
		ClientID:  "client-1",
		TaskID:    taskID,
		TaskType:  api.TaskTypeSD,
		TaskArgs:  `{"base_model":"runwayml/stable-diffusion-v1-5"}`,
		BaseModel: "runwayml/stable-diffusion-v1-5",
		Prompt:    "a cat",
		NumImages: numImages,
	})
	if err != nil {
		t.Fatalf("Record %s: %v", taskID, err)
	}
	return entry
}

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	if store.Path() != cfg.LedgerPath() {
		t.Fatalf("unexpected path %s", store.Path())
	}

	entries, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(entries))
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRecordAndGet(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	limit := 12
	entry, err := store.Record(context.Background(), ledger.Entry{
		ClientID:  "client-1",
		TaskID:    "340282366920938463463374607431768211457",
		TaskType:  api.TaskTypeSD,
		TaskArgs:  `{"seed":1}`,
		VRAMLimit: &limit,
		NumImages: 4,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == 0 || entry.Status != api.TaskStatusPending || entry.VRAMLimit == nil || *entry.VRAMLimit != 12 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}

	_, err = store.Record(context.Background(), ledger.Entry{ClientID: "client-1", TaskID: entry.TaskID, TaskArgs: "{}"})
	if !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	missing, err := store.Get(context.Background(), "client-1", "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing task, got %+v err=%v", missing, err)
	}
	found, err := store.FindByTaskID(context.Background(), entry.TaskID)
	if err != nil || found == nil || found.ClientID != "client-1" {
		t.Fatalf("FindByTaskID: %+v err=%v", found, err)
	}
}

func TestPendingTracksStatusAndImages(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()
	record(t, store, "running", 2)
	record(t, store, "aborted", 2)
	record(t, store, "done", 2)
	record(t, store, "saved", 2)

	if err := store.UpdateStatus(ctx, "client-1", "running", api.TaskStatusPendingResult, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, "client-1", "aborted", api.TaskStatusAborted, "node timeout"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, "client-1", "done", api.TaskStatusSuccess, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, "client-1", "saved", api.TaskStatusSuccess, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.MarkImagesSaved(ctx, "client-1", "saved", "/tmp/out/saved"); err != nil {
		t.Fatalf("MarkImagesSaved: %v", err)
	}

	pending, err := store.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].TaskID != "running" || pending[1].TaskID != "done" {
		t.Fatalf("unexpected pending entries %+v", pending)
	}
	for _, entry := range pending {
		if !entry.NeedsPolling() {
			t.Fatalf("%s should need polling", entry.TaskID)
		}
	}

	aborted, _ := store.Get(ctx, "client-1", "aborted")
	if aborted.AbortReason != "node timeout" || aborted.NeedsPolling() {
		t.Fatalf("unexpected aborted entry %+v", aborted)
	}
	saved, _ := store.Get(ctx, "client-1", "saved")
	if !saved.ImagesSaved || saved.ImagesDir != "/tmp/out/saved" {
		t.Fatalf("unexpected saved entry %+v", saved)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[api.TaskStatusSuccess] != 2 || stats[api.TaskStatusAborted] != 1 || stats[api.TaskStatusPendingResult] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	err := store.UpdateStatus(context.Background(), "client-1", "ghost", api.TaskStatusSuccess, "")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.MarkImagesSaved(context.Background(), "client-1", "ghost", "x"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	for _, id := range []string{"a", "b", "c"} {
		record(t, store, id, 1)
	}
	entries, err := store.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].TaskID != "c" || entries[1].TaskID != "b" {
		t.Fatalf("unexpected list %+v", entries)
	}
}
