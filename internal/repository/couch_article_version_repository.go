package repository

import (
	"context"
	"fmt"

	"article-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
	"github.com/google/uuid"
)

// couchFindAll overrides the _find default page size of 25.
const couchFindAll = 1 << 20

type articleVersionDoc struct {
	Rev             string `json:"_rev,omitempty"`
	Type            string `json:"type"`
	CreatedUnixNano int64  `json:"created_unix_nano"`
	// AppendKey is a UUIDv7 whose text sorts in append order, breaking ties
	// between versions created in the same nanosecond.
	AppendKey string `json:"append_key"`
	domain.ArticleVersion
}

func newVersionDoc(version *domain.ArticleVersion) (articleVersionDoc, error) {
	key, err := uuid.NewV7()
	if err != nil {
		return articleVersionDoc{}, fmt.Errorf("failed to generate append key: %w", err)
	}

	return articleVersionDoc{
		Type:            docTypeArticleVersion,
		CreatedUnixNano: version.CreatedAt.UnixNano(),
		AppendKey:       key.String(),
		ArticleVersion:  *version,
	}, nil
}

// versionHistoryQuery selects an article's versions newest first. Every sort
// field is part of the by_article_created_key index.
func versionHistoryQuery(articleID string, limit int) map[string]interface{} {
	if limit <= 0 {
		limit = couchFindAll
	}

	return map[string]interface{}{
		"selector": map[string]interface{}{
			"article_id":        articleID,
			"created_unix_nano": map[string]interface{}{"$gt": nil},
			"append_key":        map[string]interface{}{"$gt": nil},
			"type":              docTypeArticleVersion,
		},
		"sort": []map[string]string{
			{"article_id": "desc"},
			{"created_unix_nano": "desc"},
			{"append_key": "desc"},
		},
		"limit": limit,
	}
}

type couchArticleVersionRepository struct {
	client *kivik.Client
	dbName string
}

func NewCouchArticleVersionRepository(client *kivik.Client, dbName string) ArticleVersionRepository {
	return &couchArticleVersionRepository{
		client: client,
		dbName: dbName,
	}
}

func versionDocID(id string) string {
	return fmt.Sprintf("version:%s", id)
}

// EnsureCouchIndexes creates the Mango index the version history queries sort on.
func EnsureCouchIndexes(ctx context.Context, client *kivik.Client, dbName string) error {
	db := client.DB(dbName)

	index := map[string]interface{}{
		"fields": []string{"article_id", "created_unix_nano", "append_key"},
	}
	if err := db.CreateIndex(ctx, "versions", "by_article_created_key", index); err != nil {
		return fmt.Errorf("failed to create version index: %w", err)
	}

	index = map[string]interface{}{
		"fields": []string{"type", "has_conflict"},
	}
	if err := db.CreateIndex(ctx, "articles", "by_conflict", index); err != nil {
		return fmt.Errorf("failed to create article index: %w", err)
	}

	return nil
}

func (r *couchArticleVersionRepository) Append(ctx context.Context, version *domain.ArticleVersion) error {
	db := r.client.DB(r.dbName)

	doc, err := newVersionDoc(version)
	if err != nil {
		return err
	}
	if _, err := db.Put(ctx, versionDocID(version.ID), doc); err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}

	return nil
}

func (r *couchArticleVersionRepository) FindByID(ctx context.Context, articleID, versionID string) (*domain.ArticleVersion, error) {
	db := r.client.DB(r.dbName)

	var doc articleVersionDoc
	if err := db.Get(ctx, versionDocID(versionID)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to find version: %w", err)
	}
	if doc.ArticleID != articleID {
		return nil, domain.ErrVersionNotFound
	}

	return &doc.ArticleVersion, nil
}

func (r *couchArticleVersionRepository) ListByArticle(ctx context.Context, articleID string, limit int) ([]*domain.ArticleVersion, error) {
	db := r.client.DB(r.dbName)

	rows := db.Find(ctx, versionHistoryQuery(articleID, limit))
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.ArticleVersion
	for rows.Next() {
		var doc articleVersionDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode version: %w", err)
		}
		v := doc.ArticleVersion
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	return versions, nil
}

func (r *couchArticleVersionRepository) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	db := r.client.DB(r.dbName)

	removed := 0
	for _, id := range ids {
		docID := versionDocID(id)

		rev, err := db.GetRev(ctx, docID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return removed, fmt.Errorf("failed to read version revision: %w", err)
		}

		if _, err := db.Delete(ctx, docID, rev); err != nil {
			return removed, fmt.Errorf("failed to delete version: %w", err)
		}
		removed++
	}

	return removed, nil
}
