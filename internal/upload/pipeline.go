// Package upload rewrites local image references in a document to persistent
// URLs with a bounded number of uploads in flight.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 36

var (
	ErrSourceDisabled    = errors.New("reading images from disk is disabled")
	ErrOutsideSourceRoot = errors.New("image path is outside the source directory")
	ErrRefNotInDocument  = errors.New("image reference does not appear in the document")
)

// ImageRef is one image reference in a document. Ref is the exact text to
// substitute. The bytes come from Data when set, otherwise from Path (or Ref)
// resolved inside the pipeline's SourceRoot.
type ImageRef struct {
	Ref  string `json:"ref" validate:"required"`
	Path string `json:"path"`
	Data []byte `json:"data,omitempty"`
}

func (r ImageRef) sourcePath() string {
	if r.Path != "" {
		return r.Path
	}
	return strings.TrimPrefix(r.Ref, "file://")
}

// UploadFunc stores data and returns its persistent URL. ext is a hint such
// as ".png" and may be empty.
type UploadFunc func(ctx context.Context, data []byte, ext string) (string, error)

type Result struct {
	Ref   string `json:"ref"`
	URL   string `json:"url,omitempty"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Err == nil }

type Pipeline struct {
	Concurrency int
	// SourceRoot is the only directory image paths may point into. Empty
	// disables disk reads; refs must then carry Data.
	SourceRoot string
	// ReadFile receives paths already confined to SourceRoot.
	ReadFile func(name string) ([]byte, error)
}

func NewPipeline(concurrency int, sourceRoot string) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	p := &Pipeline{
		Concurrency: concurrency,
		SourceRoot:  sourceRoot,
	}
	p.ReadFile = p.readConfined
	return p
}

// Check rejects the batch if any reference without inline data points
// outside SourceRoot.
func (p *Pipeline) Check(refs []ImageRef) error {
	for _, ref := range refs {
		if len(ref.Data) > 0 {
			continue
		}
		if _, err := p.resolve(ref); err != nil {
			return fmt.Errorf("image %q: %w", ref.Ref, err)
		}
	}
	return nil
}

// resolve maps a reference to a cleaned absolute path inside SourceRoot.
// Relative paths are taken relative to the root.
func (p *Pipeline) resolve(ref ImageRef) (string, error) {
	if p.SourceRoot == "" {
		return "", ErrSourceDisabled
	}
	root, err := filepath.Abs(p.SourceRoot)
	if err != nil {
		return "", err
	}

	name := ref.sourcePath()
	if !filepath.IsAbs(name) {
		name = filepath.Join(root, name)
	}
	name = filepath.Clean(name)

	if !within(root, name) {
		return "", ErrOutsideSourceRoot
	}
	return name, nil
}

// readConfined resolves symlinks before reading so a link inside the root
// cannot expose a file outside it.
func (p *Pipeline) readConfined(name string) ([]byte, error) {
	root, err := filepath.Abs(p.SourceRoot)
	if err != nil {
		return nil, err
	}
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return nil, err
	}
	target, err := filepath.EvalSymlinks(name)
	if err != nil {
		return nil, err
	}
	if !within(root, target) {
		return nil, ErrOutsideSourceRoot
	}
	return os.ReadFile(target)
}

func within(root, name string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Run uploads every reference and substitutes the URLs of the ones that
// succeeded. A failed item keeps its original reference in the document and
// is reported in its Result; it never aborts the rest of the batch. A
// reference missing from the document fails without being read. Results are
// in input order.
func (p *Pipeline) Run(ctx context.Context, document string, refs []ImageRef, upload UploadFunc) (string, []Result) {
	results := make([]Result, len(refs))

	g := &errgroup.Group{}
	g.SetLimit(p.Concurrency)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			results[i] = p.uploadOne(ctx, document, ref, upload)
			return nil
		})
	}
	g.Wait()

	return Substitute(document, results), results
}

// Substitute replaces the reference of every successful result with its URL.
func Substitute(document string, results []Result) string {
	for _, r := range results {
		if r.OK() {
			document = strings.ReplaceAll(document, r.Ref, r.URL)
		}
	}
	return document
}

func (p *Pipeline) uploadOne(ctx context.Context, document string, ref ImageRef, upload UploadFunc) Result {
	result := Result{Ref: ref.Ref}

	fail := func(err error) Result {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if !strings.Contains(document, ref.Ref) {
		return fail(ErrRefNotInDocument)
	}

	hint, data := ref.sourcePath(), ref.Data
	if len(data) == 0 {
		path, err := p.resolve(ref)
		if err != nil {
			return fail(err)
		}
		if data, err = p.ReadFile(path); err != nil {
			return fail(err)
		}
	}

	url, err := upload(ctx, data, extensionHint(hint, data))
	if err != nil {
		return fail(err)
	}

	result.URL = url
	return result
}

func extensionHint(path string, data []byte) string {
	if ext := filepath.Ext(path); ext != "" {
		return strings.ToLower(ext)
	}
	return mimetype.Detect(data).Extension()
}
