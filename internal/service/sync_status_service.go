package service

import (
	"context"
	"fmt"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/repository"
)

// SyncStatusService tracks the per-article lifecycle state and the local
// version counter.
type SyncStatusService struct {
	articles repository.ArticleRepository
	opts     Options
}

func NewSyncStatusService(articles repository.ArticleRepository, opts Options) *SyncStatusService {
	return &SyncStatusService{
		articles: articles,
		opts:     opts.withDefaults(),
	}
}

// UpdateSyncStatus stores status and, when given, syncErr. Reaching synced
// always clears the stored error. The conflict state is owned by the conflict
// service: it can neither be entered nor left through this call.
func (s *SyncStatusService) UpdateSyncStatus(ctx context.Context, articleID string, status domain.SyncStatus, syncErr *string) (*domain.Article, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSyncStatus, status)
	}
	if status == domain.SyncStatusConflict {
		return nil, fmt.Errorf("%w: conflict is set by conflict detection", domain.ErrInvalidSyncStatus)
	}

	unlock := s.opts.Locks.Lock(articleID)
	defer unlock()

	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article.HasConflict {
		return nil, domain.ErrConflictPending
	}

	update := &domain.ArticleUpdate{
		SyncStatus: &status,
		SyncError:  syncErr,
		UpdatedAt:  s.opts.Clock.Now(),
	}
	if status == domain.SyncStatusSynced {
		update.SyncError = nil
		update.ClearSyncError = true
	}

	if err := s.articles.Update(ctx, articleID, update); err != nil {
		return nil, err
	}
	update.Apply(article)

	s.opts.Logger.Debug("sync status updated", "article_id", articleID, "status", status)
	s.opts.Notifier.Notify(eventFor(EventSyncStatus, article))

	return article, nil
}

// IncrementVersion bumps LocalVersion by one, stamps the editing device and
// recomputes the content hash. It is not gated on a pending conflict.
func (s *SyncStatusService) IncrementVersion(ctx context.Context, articleID string, deviceID *string) (int64, error) {
	unlock := s.opts.Locks.Lock(articleID)
	defer unlock()

	article, err := s.incrementVersion(ctx, articleID, deviceID, nil)
	if err != nil {
		return 0, err
	}
	return article.LocalVersion, nil
}

// incrementVersion expects the caller to hold the article lock. extra is
// merged into the same write.
func (s *SyncStatusService) incrementVersion(ctx context.Context, articleID string, deviceID *string, extra *domain.ArticleUpdate) (*domain.Article, error) {
	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}

	update := &domain.ArticleUpdate{}
	if extra != nil {
		*update = *extra
	}

	content := article.Content
	if update.Content != nil {
		content = *update.Content
	}

	next := article.LocalVersion + 1
	contentHash := s.opts.Hasher.Sum(content)
	update.LocalVersion = &next
	update.ContentHash = &contentHash
	update.UpdatedAt = s.opts.Clock.Now()
	if deviceID != nil {
		update.LastModifiedBy = deviceID
	}

	if err := s.articles.Update(ctx, articleID, update); err != nil {
		return nil, err
	}
	update.Apply(article)

	return article, nil
}
