package service

import (
	"context"
	"fmt"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/repository"
)

const defaultHistoryLimit = 50

// VersionService is the append-only snapshot archive with bounded retention.
type VersionService struct {
	repo         repository.ArticleVersionRepository
	keepCount    int
	historyLimit int
	opts         Options
}

// NewVersionService prunes history to keepCount after every committed
// snapshot when keepCount is positive. historyLimit is used when callers pass
// no limit.
func NewVersionService(repo repository.ArticleVersionRepository, keepCount, historyLimit int, opts Options) *VersionService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &VersionService{
		repo:         repo,
		keepCount:    keepCount,
		historyLimit: historyLimit,
		opts:         opts.withDefaults(),
	}
}

// SaveVersion snapshots article at its current LocalVersion. Nil content or
// title fall back to the article's own values.
func (s *VersionService) SaveVersion(ctx context.Context, article *domain.Article, source domain.VersionSource, content, title *string) (*domain.ArticleVersion, error) {
	unlock := s.opts.Locks.Lock(article.ID)
	defer unlock()

	v, err := s.saveVersion(ctx, article, source, content, title)
	if err != nil {
		return nil, err
	}
	s.retain(ctx, article.ID)

	return v, nil
}

// saveVersion expects the caller to hold the article lock. It never prunes:
// callers run retain once the rest of their write has succeeded, so a failed
// sequence can be undone with discard alone.
func (s *VersionService) saveVersion(ctx context.Context, article *domain.Article, source domain.VersionSource, content, title *string) (*domain.ArticleVersion, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidVersionSource, source)
	}

	v := &domain.ArticleVersion{
		ID:        s.opts.IDs.New(),
		ArticleID: article.ID,
		Version:   article.LocalVersion,
		Title:     article.Title,
		Content:   article.Content,
		Source:    source,
		CreatedAt: s.opts.Clock.Now(),
	}
	if content != nil {
		v.Content = *content
	}
	if title != nil {
		v.Title = *title
	}
	v.ContentHash = s.opts.Hasher.Sum(v.Content)

	if err := s.repo.Append(ctx, v); err != nil {
		return nil, err
	}

	return v, nil
}

// retain applies the configured history bound. It expects the caller to hold
// the article lock; failures are logged, the snapshot itself stays.
func (s *VersionService) retain(ctx context.Context, articleID string) {
	if s.keepCount <= 0 {
		return
	}
	if _, err := s.prune(ctx, articleID, s.keepCount); err != nil {
		s.opts.Logger.Warn("version retention failed", "article_id", articleID, "error", err)
	}
}

// discard removes a snapshot written earlier in a sequence whose later step failed.
func (s *VersionService) discard(ctx context.Context, v *domain.ArticleVersion) {
	if _, err := s.repo.DeleteByIDs(ctx, []string{v.ID}); err != nil {
		s.opts.Logger.Error("failed to discard orphaned version", "article_id", v.ArticleID, "version_id", v.ID, "error", err)
	}
}

// GetVersionHistory returns up to limit snapshots, newest first.
func (s *VersionService) GetVersionHistory(ctx context.Context, articleID string, limit int) ([]*domain.ArticleVersion, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.repo.ListByArticle(ctx, articleID, limit)
}

func (s *VersionService) GetVersion(ctx context.Context, articleID, versionID string) (*domain.ArticleVersion, error) {
	return s.repo.FindByID(ctx, articleID, versionID)
}

// CleanOldVersions deletes every snapshot beyond the newest keepCount and
// returns how many were removed.
func (s *VersionService) CleanOldVersions(ctx context.Context, articleID string, keepCount int) (int, error) {
	if keepCount < 0 {
		return 0, domain.ErrInvalidKeepCount
	}

	unlock := s.opts.Locks.Lock(articleID)
	defer unlock()

	return s.prune(ctx, articleID, keepCount)
}

func (s *VersionService) prune(ctx context.Context, articleID string, keepCount int) (int, error) {
	versions, err := s.repo.ListByArticle(ctx, articleID, 0)
	if err != nil {
		return 0, err
	}

	if len(versions) <= keepCount {
		return 0, nil
	}

	stale := versions[keepCount:]
	ids := make([]string, len(stale))
	for i, v := range stale {
		ids[i] = v.ID
	}

	removed, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return removed, err
	}

	s.opts.Logger.Debug("pruned article versions", "article_id", articleID, "removed", removed, "kept", keepCount)
	return removed, nil
}
