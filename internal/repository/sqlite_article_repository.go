package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"article-sync-server/internal/domain"

	"github.com/mattn/go-sqlite3"
)

const articleColumns = `id, title, content, content_hash, local_version, remote_version,
	has_conflict, conflict_remote_content, conflict_remote_title, conflict_remote_hash,
	conflict_detected_at, sync_status, sync_error, last_modified_by, created_at, updated_at`

type sqliteArticleRepository struct {
	db *sql.DB
}

func NewSQLiteArticleRepository(db *sql.DB) ArticleRepository {
	return &sqliteArticleRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var a domain.Article
	var remoteVersion, detectedAt sql.NullInt64
	var remoteContent, remoteTitle, remoteHash sql.NullString
	var syncError, lastModifiedBy sql.NullString
	var createdAt, updatedAt int64
	var status string

	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.ContentHash, &a.LocalVersion, &remoteVersion,
		&a.HasConflict, &remoteContent, &remoteTitle, &remoteHash,
		&detectedAt, &status, &syncError, &lastModifiedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.RemoteVersion = int64Ptr(remoteVersion)
	a.ConflictRemoteContent = stringPtr(remoteContent)
	a.ConflictRemoteTitle = stringPtr(remoteTitle)
	a.ConflictRemoteHash = stringPtr(remoteHash)
	a.ConflictDetectedAt = timePtr(detectedAt)
	a.SyncStatus = domain.SyncStatus(status)
	a.SyncError = stringPtr(syncError)
	a.LastModifiedBy = stringPtr(lastModifiedBy)
	a.CreatedAt = fromUnixNano(createdAt)
	a.UpdatedAt = fromUnixNano(updatedAt)

	return &a, nil
}

func (r *sqliteArticleRepository) Create(ctx context.Context, a *domain.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Content, a.ContentHash, a.LocalVersion, nullInt64(a.RemoteVersion),
		a.HasConflict, nullString(a.ConflictRemoteContent), nullString(a.ConflictRemoteTitle), nullString(a.ConflictRemoteHash),
		nullTime(a.ConflictDetectedAt), string(a.SyncStatus), nullString(a.SyncError), nullString(a.LastModifiedBy),
		toUnixNano(a.CreatedAt), toUnixNano(a.UpdatedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return domain.ErrArticleExists
		}
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

func (r *sqliteArticleRepository) FindByID(ctx context.Context, id string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	return a, nil
}

func (r *sqliteArticleRepository) List(ctx context.Context) ([]*domain.Article, error) {
	return r.query(ctx, `SELECT `+articleColumns+` FROM articles ORDER BY created_at, id`)
}

func (r *sqliteArticleRepository) ListConflicted(ctx context.Context) ([]*domain.Article, error) {
	return r.query(ctx, `SELECT `+articleColumns+` FROM articles WHERE has_conflict = 1 ORDER BY created_at, id`)
}

func (r *sqliteArticleRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []*domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// assignments keeps SET clauses in insertion order; a later set of the same
// column replaces the earlier value.
type assignments struct {
	columns []string
	values  map[string]any
}

func (s *assignments) set(column string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, exists := s.values[column]; !exists {
		s.columns = append(s.columns, column)
	}
	s.values[column] = value
}

func articleAssignments(u *domain.ArticleUpdate) *assignments {
	s := &assignments{}

	if u.Title != nil {
		s.set("title", *u.Title)
	}
	if u.Content != nil {
		s.set("content", *u.Content)
	}
	if u.ContentHash != nil {
		s.set("content_hash", *u.ContentHash)
	}
	if u.LocalVersion != nil {
		s.set("local_version", *u.LocalVersion)
	}
	if u.RemoteVersion != nil {
		s.set("remote_version", *u.RemoteVersion)
	}
	if u.ClearConflict {
		s.set("has_conflict", false)
		s.set("conflict_remote_content", nil)
		s.set("conflict_remote_title", nil)
		s.set("conflict_remote_hash", nil)
		s.set("conflict_detected_at", nil)
	}
	if u.HasConflict != nil {
		s.set("has_conflict", *u.HasConflict)
	}
	if u.ConflictRemoteContent != nil {
		s.set("conflict_remote_content", *u.ConflictRemoteContent)
	}
	if u.ConflictRemoteTitle != nil {
		s.set("conflict_remote_title", *u.ConflictRemoteTitle)
	}
	if u.ConflictRemoteHash != nil {
		s.set("conflict_remote_hash", *u.ConflictRemoteHash)
	}
	if u.ConflictDetectedAt != nil {
		s.set("conflict_detected_at", toUnixNano(*u.ConflictDetectedAt))
	}
	if u.SyncStatus != nil {
		s.set("sync_status", string(*u.SyncStatus))
	}
	if u.ClearSyncError {
		s.set("sync_error", nil)
	}
	if u.SyncError != nil {
		s.set("sync_error", *u.SyncError)
	}
	if u.LastModifiedBy != nil {
		s.set("last_modified_by", *u.LastModifiedBy)
	}
	if !u.UpdatedAt.IsZero() {
		s.set("updated_at", toUnixNano(u.UpdatedAt))
	}

	return s
}

func (r *sqliteArticleRepository) Update(ctx context.Context, id string, update *domain.ArticleUpdate) error {
	s := articleAssignments(update)
	if len(s.columns) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}

	clauses := make([]string, len(s.columns))
	args := make([]any, 0, len(s.columns)+1)
	for i, column := range s.columns {
		clauses[i] = column + " = ?"
		args = append(args, s.values[column])
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE articles SET `+strings.Join(clauses, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *sqliteArticleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}
