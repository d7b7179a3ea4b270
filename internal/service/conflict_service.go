package service

import (
	"context"
	"errors"
	"fmt"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/repository"
)

// ConflictService records remote divergence and applies whole-document
// resolutions.
type ConflictService struct {
	articles repository.ArticleRepository
	versions *VersionService
	opts     Options
}

func NewConflictService(
	articles repository.ArticleRepository,
	versions *VersionService,
	opts Options,
) *ConflictService {
	return &ConflictService{
		articles: articles,
		versions: versions,
		opts:     opts.withDefaults(),
	}
}

// CheckConflict is a read-only projection and takes no lock.
func (s *ConflictService) CheckConflict(ctx context.Context, articleID string) (*domain.ConflictStatus, error) {
	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}

	return &domain.ConflictStatus{
		ArticleID:     article.ID,
		HasConflict:   article.HasConflict,
		LocalVersion:  article.LocalVersion,
		RemoteVersion: article.RemoteVersion,
		RemoteContent: article.ConflictRemoteContent,
		SyncStatus:    article.SyncStatus,
	}, nil
}

func (s *ConflictService) ListConflicts(ctx context.Context) ([]*domain.Article, error) {
	return s.articles.ListConflicted(ctx)
}

// MarkConflict archives the remote copy and flips the article into the
// conflict state. A second call while already conflicted replaces the stored
// remote snapshot; only the latest known remote is kept for resolution.
func (s *ConflictService) MarkConflict(ctx context.Context, articleID, remoteContent, remoteTitle string, remoteVersion *int64) (*domain.Article, error) {
	unlock := s.opts.Locks.Lock(articleID)
	defer unlock()

	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.versions.saveVersion(ctx, article, domain.VersionSourceConflictRemote, &remoteContent, &remoteTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to archive remote content: %w", err)
	}

	now := s.opts.Clock.Now()
	hasConflict := true
	status := domain.SyncStatusConflict
	update := &domain.ArticleUpdate{
		RemoteVersion:         remoteVersion,
		HasConflict:           &hasConflict,
		ConflictRemoteContent: &remoteContent,
		ConflictRemoteTitle:   &remoteTitle,
		ConflictRemoteHash:    &snapshot.ContentHash,
		ConflictDetectedAt:    &now,
		SyncStatus:            &status,
		UpdatedAt:             now,
	}

	if err := s.articles.Update(ctx, articleID, update); err != nil {
		s.versions.discard(ctx, snapshot)
		return nil, err
	}
	update.Apply(article)
	s.versions.retain(ctx, articleID)

	s.opts.Logger.Info("conflict detected",
		"article_id", articleID,
		"local_version", article.LocalVersion,
		"remote_version", remoteVersion,
		"local_hash", article.ContentHash,
		"remote_hash", snapshot.ContentHash,
	)
	s.opts.Notifier.Notify(eventFor(EventConflictDetected, article))

	return article, nil
}

// ResolveConflict keeps either the local or the stored remote document. It is
// a no-op returning the article unchanged when no conflict is pending.
func (s *ConflictService) ResolveConflict(ctx context.Context, req *domain.ResolveConflictRequest) (*domain.Article, error) {
	unlock := s.opts.Locks.Lock(req.ArticleID)
	defer unlock()

	article, err := s.articles.FindByID(ctx, req.ArticleID)
	if err != nil {
		return nil, err
	}

	if !article.HasConflict {
		return article, nil
	}

	switch req.Resolution {
	case domain.ResolutionLocal:
		err = s.keepLocal(ctx, article)
	case domain.ResolutionRemote:
		err = s.adoptRemote(ctx, article)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidResolution, req.Resolution)
	}
	if err != nil {
		return nil, err
	}

	resolved, err := s.articles.FindByID(ctx, req.ArticleID)
	if err != nil {
		if errors.Is(err, domain.ErrArticleNotFound) {
			return nil, fmt.Errorf("article deleted during resolution: %w", err)
		}
		return nil, err
	}

	s.opts.Logger.Info("conflict resolved",
		"article_id", resolved.ID,
		"resolution", req.Resolution,
		"local_version", resolved.LocalVersion,
		"sync_status", resolved.SyncStatus,
	)

	event := eventFor(EventConflictResolved, resolved)
	event.Resolution = req.Resolution
	s.opts.Notifier.Notify(event)

	return resolved, nil
}

// keepLocal drops the remote snapshot and queues a push that the remote side
// must see as strictly newer than the state it rejected.
func (s *ConflictService) keepLocal(ctx context.Context, article *domain.Article) error {
	next := article.LocalVersion + 1
	status := domain.SyncStatusPending

	return s.articles.Update(ctx, article.ID, &domain.ArticleUpdate{
		ClearConflict: true,
		SyncStatus:    &status,
		LocalVersion:  &next,
		UpdatedAt:     s.opts.Clock.Now(),
	})
}

// adoptRemote archives the local document before overwriting it with the
// stored remote copy.
func (s *ConflictService) adoptRemote(ctx context.Context, article *domain.Article) error {
	if article.ConflictRemoteContent == nil {
		return domain.ErrMissingRemoteContent
	}

	backup, err := s.versions.saveVersion(ctx, article, domain.VersionSourceLocal, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to archive local content: %w", err)
	}

	content := *article.ConflictRemoteContent
	title := article.Title
	if article.ConflictRemoteTitle != nil {
		title = *article.ConflictRemoteTitle
	}
	contentHash := s.opts.Hasher.Sum(content)
	next := adoptedVersion(article)
	status := domain.SyncStatusSynced

	err = s.articles.Update(ctx, article.ID, &domain.ArticleUpdate{
		Title:          &title,
		Content:        &content,
		ContentHash:    &contentHash,
		LocalVersion:   &next,
		ClearConflict:  true,
		SyncStatus:     &status,
		ClearSyncError: true,
		UpdatedAt:      s.opts.Clock.Now(),
	})
	if err != nil {
		s.versions.discard(ctx, backup)
		return err
	}
	s.versions.retain(ctx, article.ID)

	return nil
}

// adoptedVersion takes the recorded remote counter, falling back to a plain
// bump when none was recorded or when it would move the counter backwards.
func adoptedVersion(article *domain.Article) int64 {
	if article.RemoteVersion != nil && *article.RemoteVersion >= article.LocalVersion {
		return *article.RemoteVersion
	}
	return article.LocalVersion + 1
}
