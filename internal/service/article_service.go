package service

import (
	"context"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/repository"
	"article-sync-server/internal/upload"
)

// ArticleService is the local editing surface. Edits go through the status
// tracker so every content change bumps the version and the hash.
type ArticleService struct {
	articles repository.ArticleRepository
	versions *VersionService
	status   *SyncStatusService
	pipeline *upload.Pipeline
	uploader upload.UploadFunc
	opts     Options
}

func NewArticleService(
	articles repository.ArticleRepository,
	versions *VersionService,
	status *SyncStatusService,
	pipeline *upload.Pipeline,
	uploader upload.UploadFunc,
	opts Options,
) *ArticleService {
	return &ArticleService{
		articles: articles,
		versions: versions,
		status:   status,
		pipeline: pipeline,
		uploader: uploader,
		opts:     opts.withDefaults(),
	}
}

func (s *ArticleService) Create(ctx context.Context, req *domain.CreateArticleRequest) (*domain.Article, error) {
	now := s.opts.Clock.Now()
	deviceID := req.DeviceID

	status := domain.SyncStatusSynced
	if req.Pending {
		status = domain.SyncStatusPending
	}

	article := &domain.Article{
		ID:             s.opts.IDs.New(),
		Title:          req.Title,
		Content:        req.Content,
		ContentHash:    s.opts.Hasher.Sum(req.Content),
		LocalVersion:   1,
		SyncStatus:     status,
		LastModifiedBy: &deviceID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, err
	}

	return article, nil
}

func (s *ArticleService) Get(ctx context.Context, id string) (*domain.Article, error) {
	return s.articles.FindByID(ctx, id)
}

func (s *ArticleService) List(ctx context.Context) ([]*domain.Article, error) {
	return s.articles.List(ctx)
}

// Edit archives the pre-edit document, writes the new title and content and
// bumps the version. Outside a conflict the article moves to pending; during
// one it stays in conflict until explicitly resolved.
func (s *ArticleService) Edit(ctx context.Context, id string, req *domain.EditArticleRequest) (*domain.Article, error) {
	unlock := s.opts.Locks.Lock(id)
	defer unlock()

	return s.edit(ctx, id, req)
}

func (s *ArticleService) edit(ctx context.Context, id string, req *domain.EditArticleRequest) (*domain.Article, error) {
	current, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	backup, err := s.versions.saveVersion(ctx, current, domain.VersionSourceLocal, nil, nil)
	if err != nil {
		return nil, err
	}

	update := &domain.ArticleUpdate{
		Title:   req.Title,
		Content: req.Content,
	}
	if !current.HasConflict {
		pending := domain.SyncStatusPending
		update.SyncStatus = &pending
	}

	var deviceID *string
	if req.DeviceID != "" {
		deviceID = &req.DeviceID
	}

	article, err := s.status.incrementVersion(ctx, id, deviceID, update)
	if err != nil {
		s.versions.discard(ctx, backup)
		return nil, err
	}
	s.versions.retain(ctx, id)

	event := eventFor(EventArticleEdited, article)
	event.DeviceID = req.DeviceID
	s.opts.Notifier.Notify(event)

	return article, nil
}

// SaveVersion snapshots the article as currently stored. The read happens
// under the article lock so the snapshot carries the live LocalVersion.
func (s *ArticleService) SaveVersion(ctx context.Context, id string, source domain.VersionSource, content, title *string) (*domain.ArticleVersion, error) {
	unlock := s.opts.Locks.Lock(id)
	defer unlock()

	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v, err := s.versions.saveVersion(ctx, article, source, content, title)
	if err != nil {
		return nil, err
	}
	s.versions.retain(ctx, id)

	return v, nil
}

// UploadImages pushes the referenced images through the upload pipeline and,
// when at least one succeeded, stores the rewritten content as a local edit.
// Uploads run without the article lock; the URLs are substituted into the
// content as it stands once they finish. A batch naming any file outside
// the pipeline's source directory is rejected before anything is read.
func (s *ArticleService) UploadImages(ctx context.Context, id, deviceID string, refs []upload.ImageRef) (*domain.Article, []upload.Result, error) {
	if err := s.pipeline.Check(refs); err != nil {
		return nil, nil, err
	}

	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	_, results := s.pipeline.Run(ctx, article.Content, refs, s.uploader)

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			s.opts.Logger.Warn("image upload failed", "article_id", id, "ref", r.Ref, "error", r.Err)
		}
	}

	unlock := s.opts.Locks.Lock(id)
	defer unlock()

	current, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, results, err
	}

	content := upload.Substitute(current.Content, results)
	if content == current.Content {
		return current, results, nil
	}

	updated, err := s.edit(ctx, id, &domain.EditArticleRequest{
		Content:  &content,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, results, err
	}

	s.opts.Logger.Info("images uploaded", "article_id", id, "succeeded", len(results)-failed, "failed", failed)
	return updated, results, nil
}
