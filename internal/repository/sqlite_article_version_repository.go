package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"article-sync-server/internal/domain"
)

const versionColumns = `id, article_id, version, title, content, content_hash, source, created_at`

type sqliteArticleVersionRepository struct {
	db *sql.DB
}

func NewSQLiteArticleVersionRepository(db *sql.DB) ArticleVersionRepository {
	return &sqliteArticleVersionRepository{db: db}
}

func scanVersion(row rowScanner) (*domain.ArticleVersion, error) {
	var v domain.ArticleVersion
	var source string
	var createdAt int64

	if err := row.Scan(&v.ID, &v.ArticleID, &v.Version, &v.Title, &v.Content, &v.ContentHash, &source, &createdAt); err != nil {
		return nil, err
	}
	v.Source = domain.VersionSource(source)
	v.CreatedAt = fromUnixNano(createdAt)
	return &v, nil
}

func (r *sqliteArticleVersionRepository) Append(ctx context.Context, v *domain.ArticleVersion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO article_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ArticleID, v.Version, v.Title, v.Content, v.ContentHash, string(v.Source), toUnixNano(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}
	return nil
}

func (r *sqliteArticleVersionRepository) FindByID(ctx context.Context, articleID, versionID string) (*domain.ArticleVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM article_versions WHERE article_id = ? AND id = ?`,
		articleID, versionID,
	)

	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to find version: %w", err)
	}
	return v, nil
}

func (r *sqliteArticleVersionRepository) ListByArticle(ctx context.Context, articleID string, limit int) ([]*domain.ArticleVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM article_versions WHERE article_id = ? ORDER BY created_at DESC, seq DESC`
	args := []any{articleID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.ArticleVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

func (r *sqliteArticleVersionRepository) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM article_versions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete versions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete versions: %w", err)
	}
	return int(n), nil
}
