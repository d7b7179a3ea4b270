package repository

import (
	"context"
	"sort"
	"sync"

	"article-sync-server/internal/domain"
)

type memoryArticleRepository struct {
	mu       sync.RWMutex
	articles map[string]*domain.Article
}

func NewMemoryArticleRepository() ArticleRepository {
	return &memoryArticleRepository{
		articles: make(map[string]*domain.Article),
	}
}

func cloneArticle(a *domain.Article) *domain.Article {
	c := *a
	c.RemoteVersion = clonePtr(a.RemoteVersion)
	c.ConflictRemoteContent = clonePtr(a.ConflictRemoteContent)
	c.ConflictRemoteTitle = clonePtr(a.ConflictRemoteTitle)
	c.ConflictRemoteHash = clonePtr(a.ConflictRemoteHash)
	c.ConflictDetectedAt = clonePtr(a.ConflictDetectedAt)
	c.SyncError = clonePtr(a.SyncError)
	c.LastModifiedBy = clonePtr(a.LastModifiedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (r *memoryArticleRepository) Create(_ context.Context, article *domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.articles[article.ID]; exists {
		return domain.ErrArticleExists
	}
	r.articles[article.ID] = cloneArticle(article)
	return nil
}

func (r *memoryArticleRepository) FindByID(_ context.Context, id string) (*domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.articles[id]
	if !exists {
		return nil, domain.ErrArticleNotFound
	}
	return cloneArticle(a), nil
}

func (r *memoryArticleRepository) List(_ context.Context) ([]*domain.Article, error) {
	return r.filter(func(*domain.Article) bool { return true }), nil
}

func (r *memoryArticleRepository) ListConflicted(_ context.Context) ([]*domain.Article, error) {
	return r.filter(func(a *domain.Article) bool { return a.HasConflict }), nil
}

func (r *memoryArticleRepository) filter(keep func(*domain.Article) bool) []*domain.Article {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Article
	for _, a := range r.articles {
		if keep(a) {
			out = append(out, cloneArticle(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memoryArticleRepository) Update(_ context.Context, id string, update *domain.ArticleUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.articles[id]
	if !exists {
		return domain.ErrArticleNotFound
	}
	update.Apply(a)
	return nil
}

func (r *memoryArticleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.articles[id]; !exists {
		return domain.ErrArticleNotFound
	}
	delete(r.articles, id)
	return nil
}

type memoryVersion struct {
	seq     int64
	version domain.ArticleVersion
}

type memoryArticleVersionRepository struct {
	mu       sync.RWMutex
	seq      int64
	versions []memoryVersion
}

func NewMemoryArticleVersionRepository() ArticleVersionRepository {
	return &memoryArticleVersionRepository{}
}

func (r *memoryArticleVersionRepository) Append(_ context.Context, version *domain.ArticleVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.versions = append(r.versions, memoryVersion{seq: r.seq, version: *version})
	return nil
}

func (r *memoryArticleVersionRepository) FindByID(_ context.Context, articleID, versionID string) (*domain.ArticleVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.versions {
		if v.version.ArticleID == articleID && v.version.ID == versionID {
			out := v.version
			return &out, nil
		}
	}
	return nil, domain.ErrVersionNotFound
}

func (r *memoryArticleVersionRepository) ListByArticle(_ context.Context, articleID string, limit int) ([]*domain.ArticleVersion, error) {
	r.mu.RLock()
	matched := make([]memoryVersion, 0)
	for _, v := range r.versions {
		if v.version.ArticleID == articleID {
			matched = append(matched, v)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.version.CreatedAt.Equal(b.version.CreatedAt) {
			return a.seq > b.seq
		}
		return a.version.CreatedAt.After(b.version.CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*domain.ArticleVersion, len(matched))
	for i := range matched {
		v := matched[i].version
		out[i] = &v
	}
	return out, nil
}

func (r *memoryArticleVersionRepository) DeleteByIDs(_ context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.versions[:0]
	removed := 0
	for _, v := range r.versions {
		if drop[v.version.ID] {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	r.versions = kept
	return removed, nil
}
