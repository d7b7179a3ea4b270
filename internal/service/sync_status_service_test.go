package service

import (
	"context"
	"errors"
	"testing"

	"article-sync-server/internal/domain"
)

func TestSyncStatusService_UpdateSyncStatus(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "body")

	got, err := env.statusSvc.UpdateSyncStatus(ctx, article.ID, domain.SyncStatusError, strp("timeout"))
	if err != nil {
		t.Fatalf("UpdateSyncStatus(error) error = %v", err)
	}
	if got.SyncStatus != domain.SyncStatusError || got.SyncError == nil || *got.SyncError != "timeout" {
		t.Errorf("article = %s/%v, want error/timeout", got.SyncStatus, got.SyncError)
	}

	if _, err := env.statusSvc.UpdateSyncStatus(ctx, article.ID, domain.SyncStatusSyncing, nil); err != nil {
		t.Fatalf("UpdateSyncStatus(syncing) error = %v", err)
	}
	if stored := env.find(t, article.ID); stored.SyncError == nil {
		t.Error("SyncError cleared by a non-synced status, want kept")
	}

	if _, err := env.statusSvc.UpdateSyncStatus(ctx, article.ID, domain.SyncStatusSynced, strp("ignored")); err != nil {
		t.Fatalf("UpdateSyncStatus(synced) error = %v", err)
	}
	stored := env.find(t, article.ID)
	if stored.SyncStatus != domain.SyncStatusSynced {
		t.Errorf("SyncStatus = %s, want synced", stored.SyncStatus)
	}
	if stored.SyncError != nil {
		t.Errorf("SyncError = %q, want nil after synced", *stored.SyncError)
	}

	types := env.notifier.types()
	if len(types) != 3 || types[0] != EventSyncStatus {
		t.Errorf("events = %v, want three sync_status events", types)
	}
}

func TestSyncStatusService_UpdateSyncStatus_Errors(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "body")
	conflicted := env.createArticle(t, "other")
	if _, err := env.conflictSvc.MarkConflict(ctx, conflicted.ID, "remote", "Remote", int64p(3)); err != nil {
		t.Fatalf("MarkConflict() error = %v", err)
	}

	tests := []struct {
		name    string
		id      string
		status  domain.SyncStatus
		wantErr error
	}{
		{name: "unknown status", id: article.ID, status: "paused", wantErr: domain.ErrInvalidSyncStatus},
		{name: "conflict is not settable", id: article.ID, status: domain.SyncStatusConflict, wantErr: domain.ErrInvalidSyncStatus},
		{name: "pending conflict", id: conflicted.ID, status: domain.SyncStatusSynced, wantErr: domain.ErrConflictPending},
		{name: "missing article", id: "article-404", status: domain.SyncStatusPending, wantErr: domain.ErrArticleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.statusSvc.UpdateSyncStatus(ctx, tt.id, tt.status, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateSyncStatus() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if stored := env.find(t, conflicted.ID); stored.SyncStatus != domain.SyncStatusConflict {
		t.Errorf("SyncStatus = %s, want conflict kept", stored.SyncStatus)
	}
}

func TestSyncStatusService_IncrementVersion(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "Hello")
	oldHash := article.ContentHash

	// Content changed underneath without a version bump.
	content := "Hello world"
	if err := env.articles.Update(ctx, article.ID, &domain.ArticleUpdate{Content: &content}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := env.statusSvc.IncrementVersion(ctx, article.ID, strp("tablet"))
	if err != nil {
		t.Fatalf("IncrementVersion() error = %v", err)
	}
	if got != 2 {
		t.Errorf("IncrementVersion() = %d, want 2", got)
	}

	stored := env.find(t, article.ID)
	if stored.ContentHash == oldHash {
		t.Error("ContentHash unchanged after content edit")
	}
	if stored.ContentHash != env.opts.Hasher.Sum("Hello world") {
		t.Errorf("ContentHash = %s, want hash of current content", stored.ContentHash)
	}
	if stored.LastModifiedBy == nil || *stored.LastModifiedBy != "tablet" {
		t.Errorf("LastModifiedBy = %v, want tablet", stored.LastModifiedBy)
	}
}

func TestSyncStatusService_IncrementVersion_DuringConflict(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "body")
	if _, err := env.conflictSvc.MarkConflict(ctx, article.ID, "remote", "Remote", nil); err != nil {
		t.Fatalf("MarkConflict() error = %v", err)
	}

	got, err := env.statusSvc.IncrementVersion(ctx, article.ID, nil)
	if err != nil {
		t.Fatalf("IncrementVersion() error = %v", err)
	}
	if got != 2 {
		t.Errorf("IncrementVersion() = %d, want 2", got)
	}

	stored := env.find(t, article.ID)
	if !stored.HasConflict {
		t.Error("HasConflict cleared by IncrementVersion")
	}
	if stored.LastModifiedBy == nil || *stored.LastModifiedBy != "laptop" {
		t.Errorf("LastModifiedBy = %v, want laptop kept", stored.LastModifiedBy)
	}
}

func TestSyncStatusService_IncrementVersion_NotFound(t *testing.T) {
	env := newTestEnv(t, 0)

	_, err := env.statusSvc.IncrementVersion(context.Background(), "article-404", nil)
	if !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("IncrementVersion() error = %v, want %v", err, domain.ErrArticleNotFound)
	}
}
