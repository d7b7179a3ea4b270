package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/repository"
	"article-sync-server/internal/testutil"
	"article-sync-server/internal/upload"
	"article-sync-server/pkg/hash"
)

var testImages = map[string]string{
	"/tmp/cat.png": "cat",
	"/tmp/dog.jpg": "dog",
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// failingArticleRepo wraps a repository and fails Update once armed.
type failingArticleRepo struct {
	repository.ArticleRepository
	failUpdate error
}

func (r *failingArticleRepo) Update(ctx context.Context, id string, u *domain.ArticleUpdate) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	return r.ArticleRepository.Update(ctx, id, u)
}

type testEnv struct {
	articles *failingArticleRepo
	versions repository.ArticleVersionRepository
	clock    *testutil.TickingClock
	notifier *recordingNotifier
	opts     Options

	versionSvc  *VersionService
	statusSvc   *SyncStatusService
	conflictSvc *ConflictService
	articleSvc  *ArticleService
}

func newTestEnv(t *testing.T, keepCount int) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	env := &testEnv{
		articles: &failingArticleRepo{ArticleRepository: store.Articles},
		versions: store.Versions,
		clock:    testutil.NewTickingClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), time.Second),
		notifier: &recordingNotifier{},
	}
	env.opts = Options{
		Hasher:   hash.FNVHasher{},
		Clock:    env.clock,
		IDs:      testutil.NewStubIDGenerator("v"),
		Locks:    NewKeyedMutex(),
		Notifier: env.notifier,
	}

	env.versionSvc = NewVersionService(env.versions, keepCount, 0, env.opts)
	env.statusSvc = NewSyncStatusService(env.articles, env.opts)
	env.conflictSvc = NewConflictService(env.articles, env.versionSvc, env.opts)

	pipeline := upload.NewPipeline(4, "/tmp")
	pipeline.ReadFile = func(name string) ([]byte, error) {
		if data, ok := testImages[name]; ok {
			return []byte(data), nil
		}
		return nil, fmt.Errorf("open %s: no such file", name)
	}
	uploader := func(ctx context.Context, data []byte, ext string) (string, error) {
		return "https://cdn.example.com/" + string(data) + ext, nil
	}

	articleOpts := env.opts
	articleOpts.IDs = testutil.NewStubIDGenerator("article")
	env.articleSvc = NewArticleService(env.articles, env.versionSvc, env.statusSvc, pipeline, uploader, articleOpts)

	return env
}

func (e *testEnv) createArticle(t *testing.T, content string) *domain.Article {
	t.Helper()

	a, err := e.articleSvc.Create(context.Background(), &domain.CreateArticleRequest{
		Title:    "Local Title",
		Content:  content,
		DeviceID: "laptop",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return a
}

func (e *testEnv) find(t *testing.T, id string) *domain.Article {
	t.Helper()

	a, err := e.articles.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	return a
}

func int64p(v int64) *int64 { return &v }

func strp(v string) *string { return &v }
