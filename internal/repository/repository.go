package repository

import (
	"context"

	"article-sync-server/internal/domain"
)

// ArticleRepository exposes the field-level operations the sync core needs.
// Implementations return domain.ErrArticleNotFound for unknown ids.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	FindByID(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context) ([]*domain.Article, error)
	ListConflicted(ctx context.Context) ([]*domain.Article, error)
	Update(ctx context.Context, id string, update *domain.ArticleUpdate) error
	Delete(ctx context.Context, id string) error
}

// ArticleVersionRepository is an append-only snapshot archive. ListByArticle
// returns newest first by CreatedAt, ties broken by insertion order; a
// non-positive limit returns every snapshot.
type ArticleVersionRepository interface {
	Append(ctx context.Context, version *domain.ArticleVersion) error
	FindByID(ctx context.Context, articleID, versionID string) (*domain.ArticleVersion, error)
	ListByArticle(ctx context.Context, articleID string, limit int) ([]*domain.ArticleVersion, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
}
