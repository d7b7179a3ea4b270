package repository

import (
	"context"
	"fmt"
	"net/http"

	"article-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const (
	docTypeArticle        = "article"
	docTypeArticleVersion = "article_version"
)

type articleDoc struct {
	Rev  string `json:"_rev,omitempty"`
	Type string `json:"type"`
	domain.Article
}

type couchArticleRepository struct {
	client *kivik.Client
	dbName string
}

func NewCouchArticleRepository(client *kivik.Client, dbName string) ArticleRepository {
	return &couchArticleRepository{
		client: client,
		dbName: dbName,
	}
}

func articleDocID(id string) string {
	return fmt.Sprintf("article:%s", id)
}

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

func (r *couchArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	db := r.client.DB(r.dbName)

	doc := articleDoc{Type: docTypeArticle, Article: *article}
	if _, err := db.Put(ctx, articleDocID(article.ID), doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return domain.ErrArticleExists
		}
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

func (r *couchArticleRepository) get(ctx context.Context, id string) (*articleDoc, error) {
	db := r.client.DB(r.dbName)

	var doc articleDoc
	if err := db.Get(ctx, articleDocID(id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return &doc, nil
}

func (r *couchArticleRepository) FindByID(ctx context.Context, id string) (*domain.Article, error) {
	doc, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &doc.Article, nil
}

func (r *couchArticleRepository) List(ctx context.Context) ([]*domain.Article, error) {
	return r.find(ctx, map[string]interface{}{
		"type": docTypeArticle,
	})
}

func (r *couchArticleRepository) ListConflicted(ctx context.Context) ([]*domain.Article, error) {
	return r.find(ctx, map[string]interface{}{
		"type":         docTypeArticle,
		"has_conflict": true,
	})
}

func (r *couchArticleRepository) find(ctx context.Context, selector map[string]interface{}) ([]*domain.Article, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": selector,
		"limit":    couchFindAll,
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []*domain.Article
	for rows.Next() {
		var doc articleDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode article: %w", err)
		}
		a := doc.Article
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return articles, nil
}

// Update re-reads the current revision and writes the patched document back.
// A revision conflict from a concurrent writer is returned, not retried.
func (r *couchArticleRepository) Update(ctx context.Context, id string, update *domain.ArticleUpdate) error {
	doc, err := r.get(ctx, id)
	if err != nil {
		return err
	}

	update.Apply(&doc.Article)

	db := r.client.DB(r.dbName)
	if _, err := db.Put(ctx, articleDocID(id), doc); err != nil {
		if isNotFound(err) {
			return domain.ErrArticleNotFound
		}
		return fmt.Errorf("failed to update article: %w", err)
	}

	return nil
}

func (r *couchArticleRepository) Delete(ctx context.Context, id string) error {
	doc, err := r.get(ctx, id)
	if err != nil {
		return err
	}

	db := r.client.DB(r.dbName)
	if _, err := db.Delete(ctx, articleDocID(id), doc.Rev); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	return nil
}
