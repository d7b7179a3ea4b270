package service

import (
	"context"
	"errors"
	"testing"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/upload"
)

func TestArticleService_Create(t *testing.T) {
	tests := []struct {
		name       string
		pending    bool
		wantStatus domain.SyncStatus
	}{
		{name: "pulled article", pending: false, wantStatus: domain.SyncStatusSynced},
		{name: "local draft", pending: true, wantStatus: domain.SyncStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			ctx := context.Background()

			got, err := env.articleSvc.Create(ctx, &domain.CreateArticleRequest{
				Title:    "Draft",
				Content:  "Hello",
				DeviceID: "laptop",
				Pending:  tt.pending,
			})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if got.ID != "article-1" {
				t.Errorf("ID = %s, want article-1", got.ID)
			}
			if got.LocalVersion != 1 {
				t.Errorf("LocalVersion = %d, want 1", got.LocalVersion)
			}
			if got.SyncStatus != tt.wantStatus {
				t.Errorf("SyncStatus = %s, want %s", got.SyncStatus, tt.wantStatus)
			}
			if got.ContentHash != env.opts.Hasher.Sum("Hello") {
				t.Errorf("ContentHash = %s, want hash of content", got.ContentHash)
			}

			stored, err := env.articleSvc.Get(ctx, got.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if stored.Title != "Draft" || stored.LastModifiedBy == nil || *stored.LastModifiedBy != "laptop" {
				t.Errorf("stored = %+v, want persisted article", stored)
			}
		})
	}
}

func TestArticleService_List(t *testing.T) {
	env := newTestEnv(t, 0)
	env.createArticle(t, "one")
	env.createArticle(t, "two")

	got, err := env.articleSvc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(List()) = %d, want 2", len(got))
	}
}

func TestArticleService_Edit(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "Hello")

	got, err := env.articleSvc.Edit(ctx, article.ID, &domain.EditArticleRequest{
		Content:  strp("Hello world"),
		DeviceID: "tablet",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if got.Content != "Hello world" || got.Title != "Local Title" {
		t.Errorf("article = %q/%q, want new content with title kept", got.Title, got.Content)
	}
	if got.LocalVersion != 2 {
		t.Errorf("LocalVersion = %d, want 2", got.LocalVersion)
	}
	if got.ContentHash == article.ContentHash {
		t.Error("ContentHash unchanged after edit")
	}
	if got.SyncStatus != domain.SyncStatusPending {
		t.Errorf("SyncStatus = %s, want pending", got.SyncStatus)
	}
	if *got.LastModifiedBy != "tablet" {
		t.Errorf("LastModifiedBy = %s, want tablet", *got.LastModifiedBy)
	}

	history, err := env.versionSvc.GetVersionHistory(ctx, article.ID, 0)
	if err != nil {
		t.Fatalf("GetVersionHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].Content != "Hello" || history[0].Version != 1 {
		t.Errorf("history = %+v, want pre-edit snapshot", history)
	}

	events := env.notifier.events
	if len(events) != 1 || events[0].Type != EventArticleEdited || events[0].DeviceID != "tablet" {
		t.Errorf("events = %+v, want article_edited from tablet", events)
	}
}

func TestArticleService_Edit_DuringConflict(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "Hello")
	if _, err := env.conflictSvc.MarkConflict(ctx, article.ID, "Remote", "Remote", int64p(4)); err != nil {
		t.Fatalf("MarkConflict() error = %v", err)
	}

	got, err := env.articleSvc.Edit(ctx, article.ID, &domain.EditArticleRequest{
		Title:    strp("Renamed"),
		DeviceID: "laptop",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if !got.HasConflict || got.SyncStatus != domain.SyncStatusConflict {
		t.Errorf("article = %v/%s, want conflict kept", got.HasConflict, got.SyncStatus)
	}
	if got.ConflictRemoteContent == nil || *got.ConflictRemoteContent != "Remote" {
		t.Error("remote snapshot lost by edit")
	}
	if got.LocalVersion != 2 {
		t.Errorf("LocalVersion = %d, want 2", got.LocalVersion)
	}
}

func TestArticleService_Edit_UpdateFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "Hello")

	storeErr := errors.New("disk full")
	env.articles.failUpdate = storeErr

	_, err := env.articleSvc.Edit(ctx, article.ID, &domain.EditArticleRequest{
		Content:  strp("lost"),
		DeviceID: "laptop",
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("Edit() error = %v, want %v", err, storeErr)
	}

	if history, _ := env.versionSvc.GetVersionHistory(ctx, article.ID, 0); len(history) != 0 {
		t.Errorf("len(history) = %d, want backup discarded", len(history))
	}
}

func TestArticleService_Edit_NotFound(t *testing.T) {
	env := newTestEnv(t, 0)

	_, err := env.articleSvc.Edit(context.Background(), "article-404", &domain.EditArticleRequest{
		Content:  strp("x"),
		DeviceID: "laptop",
	})
	if !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("Edit() error = %v, want %v", err, domain.ErrArticleNotFound)
	}
}

func TestArticleService_SaveVersion(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	stale := env.createArticle(t, "draft")

	for _, body := range []string{"second", "third"} {
		if _, err := env.articleSvc.Edit(ctx, stale.ID, &domain.EditArticleRequest{Content: strp(body)}); err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
	}

	v, err := env.articleSvc.SaveVersion(ctx, stale.ID, domain.VersionSourceRemote, nil, nil)
	if err != nil {
		t.Fatalf("SaveVersion() error = %v", err)
	}
	if v.Version != 3 || v.Content != "third" {
		t.Errorf("version = v%d %q, want v3 \"third\" (stored state, not v%d)", v.Version, v.Content, stale.LocalVersion)
	}

	history, err := env.versionSvc.GetVersionHistory(ctx, stale.ID, 0)
	if err != nil {
		t.Fatalf("GetVersionHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].ID != v.ID {
		t.Errorf("history = %+v, want two entries headed by %s", history, v.ID)
	}

	if _, err := env.articleSvc.SaveVersion(ctx, "article-404", domain.VersionSourceLocal, nil, nil); !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("SaveVersion() error = %v, want %v", err, domain.ErrArticleNotFound)
	}
}

func TestArticleService_UploadImages_OutsideSourceRoot(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "![a](/tmp/cat.png) ![s](/etc/shadow)")

	_, results, err := env.articleSvc.UploadImages(ctx, article.ID, "laptop", []upload.ImageRef{
		{Ref: "/tmp/cat.png"},
		{Ref: "/etc/shadow"},
	})
	if !errors.Is(err, upload.ErrOutsideSourceRoot) {
		t.Fatalf("UploadImages() error = %v, want %v", err, upload.ErrOutsideSourceRoot)
	}
	if results != nil {
		t.Errorf("results = %+v, want nothing uploaded", results)
	}
	if got := env.find(t, article.ID); got.LocalVersion != 1 {
		t.Errorf("LocalVersion = %d, want untouched", got.LocalVersion)
	}
}

func TestArticleService_UploadImages(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "![a](/tmp/cat.png) ![b](/tmp/missing.png) ![c](/tmp/dog.jpg)")

	got, results, err := env.articleSvc.UploadImages(ctx, article.ID, "laptop", []upload.ImageRef{
		{Ref: "/tmp/cat.png"},
		{Ref: "/tmp/missing.png"},
		{Ref: "/tmp/dog.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if !results[0].OK() || results[1].OK() || !results[2].OK() {
		t.Errorf("results = %+v, want only the missing file to fail", results)
	}
	if results[1].Error == "" {
		t.Error("failed result has no error message")
	}

	want := "![a](https://cdn.example.com/cat.png) ![b](/tmp/missing.png) ![c](https://cdn.example.com/dog.jpg)"
	if got.Content != want {
		t.Errorf("Content = %q, want %q", got.Content, want)
	}
	if got.LocalVersion != 2 || got.SyncStatus != domain.SyncStatusPending {
		t.Errorf("article = v%d/%s, want v2/pending", got.LocalVersion, got.SyncStatus)
	}
}

func TestArticleService_UploadImages_NothingUploaded(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	article := env.createArticle(t, "![b](/tmp/missing.png)")

	got, results, err := env.articleSvc.UploadImages(ctx, article.ID, "laptop", []upload.ImageRef{
		{Ref: "/tmp/missing.png"},
	})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}
	if len(results) != 1 || results[0].OK() {
		t.Errorf("results = %+v, want one failure", results)
	}
	if got.LocalVersion != 1 || got.SyncStatus != domain.SyncStatusSynced {
		t.Errorf("article = v%d/%s, want untouched", got.LocalVersion, got.SyncStatus)
	}
}
