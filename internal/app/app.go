// Package app wires together all adapters and domain logic.
// It owns the index lifecycle for the licscan CLI: load or build the index,
// match text and files against it, and swap in a rebuilt index when the
// corpus changes.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/corey/licscan/internal/adapters/ahocorasick"
	"github.com/corey/licscan/internal/adapters/bbolt"
	fsw "github.com/corey/licscan/internal/adapters/fsnotify"
	"github.com/corey/licscan/internal/adapters/markup"
	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/match"
	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/ports"
)

var (
	// ErrBinaryInput is returned for files that contain NUL bytes.
	ErrBinaryInput = errors.New("binary input")
	// ErrNoIndex is returned when matching before an index is loaded.
	ErrNoIndex = errors.New("index not loaded")
	// ErrRebuildDisabled is returned when the cache cannot be used and
	// allow_rebuild is off.
	ErrRebuildDisabled = errors.New("index rebuild disabled")
)

// Source tells where a loaded index came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceBuilt Source = "built"
)

// App is the top-level container wiring all components together.
type App struct {
	cfg   Config
	Store *bbolt.Store

	handle IndexHandle
	mu     sync.Mutex // serializes load, build and reload
}

// New creates an App with its cache opened. Does not load the index.
func New(cfg Config) (*App, error) {
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	if cfg.Index.ScannerFactory == nil {
		cfg.Index.ScannerFactory = ahocorasick.Factory
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &App{cfg: cfg, Store: store}, nil
}

// Config returns the resolved configuration.
func (a *App) Config() Config { return a.cfg }

// Engine returns the current engine, or ErrNoIndex before LoadIndex.
func (a *App) Engine() (*match.Engine, error) {
	e := a.handle.Load()
	if e == nil {
		return nil, ErrNoIndex
	}
	return e, nil
}

// LoadIndex publishes the cached index when it matches the corpus on disk,
// and otherwise rebuilds it (when allowed) and rewrites the cache.
func (a *App) LoadIndex() (*index.LicenseIndex, Source, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	corpus, err := models.LoadCorpus(a.cfg.RulesDir, a.cfg.LicensesDir)
	if err != nil {
		return nil, "", fmt.Errorf("load corpus: %w", err)
	}
	key := index.CacheKey(corpus.Fingerprint, a.cfg.Index)

	snap, err := a.Store.LoadIndex(key)
	switch {
	case err == nil && snap != nil:
		idx, ferr := index.FromSnapshot(snap, a.cfg.Index)
		if ferr == nil {
			a.publish(idx)
			gologger.Verbose().Msgf("Loaded cached index: %d rules", len(idx.Rules()))
			return idx, SourceCache, nil
		}
		err = ferr
	case err == nil:
		err = errors.New("no cached index")
	}

	if !a.cfg.AllowRebuild {
		return nil, "", fmt.Errorf("%w: %v", ErrRebuildDisabled, err)
	}
	if errors.Is(err, ports.ErrStaleCache) {
		gologger.Info().Msgf("Corpus changed, rebuilding index")
	} else {
		gologger.Verbose().Msgf("Building index: %v", err)
	}
	idx, err := a.build(corpus)
	if err != nil {
		return nil, "", err
	}
	return idx, SourceBuilt, nil
}

// BuildIndex rebuilds the index from the corpus regardless of the cache,
// saves it and publishes it.
func (a *App) BuildIndex() (*index.LicenseIndex, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	corpus, err := models.LoadCorpus(a.cfg.RulesDir, a.cfg.LicensesDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return a.build(corpus)
}

// build indexes corpus, publishes it, and saves the snapshot. A failed save
// only costs the next run a rebuild.
func (a *App) build(corpus *models.Corpus) (*index.LicenseIndex, error) {
	idx, err := index.Build(corpus, a.cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	a.publish(idx)
	if err := a.Store.SaveIndex(idx.Snapshot()); err != nil {
		gologger.Warning().Msgf("save index cache: %v", err)
	}
	return idx, nil
}

func (a *App) publish(idx *index.LicenseIndex) {
	a.handle.Store(match.NewEngine(idx, a.cfg.Match))
}

// Reload re-reads the corpus and swaps in the new index. On failure the
// current index stays published.
func (a *App) Reload() error {
	start := time.Now()
	idx, src, err := a.LoadIndex()
	if err != nil {
		return err
	}
	gologger.Info().Msgf("Index reloaded (%s): %d rules in %s", src, len(idx.Rules()), time.Since(start).Round(time.Millisecond))
	return nil
}

// Stats describes the cached index. Returns nil, nil if there is none.
func (a *App) Stats() (*ports.CacheMeta, error) {
	return a.Store.Meta()
}

// ClearIndex deletes the cached index.
func (a *App) ClearIndex() error {
	return a.Store.DeleteIndex()
}

// MatchText matches text against the current index.
func (a *App) MatchText(ctx context.Context, text string) (*match.Result, error) {
	e, err := a.Engine()
	if err != nil {
		return nil, err
	}
	return e.MatchText(ctx, text), nil
}

// MatchFile reads path and matches its content. Binary files are rejected
// with ErrBinaryInput; invalid UTF-8 is replaced. Markup is stripped first
// when StripMarkup is set.
func (a *App) MatchFile(ctx context.Context, path string) (*match.Result, error) {
	e, err := a.Engine()
	if err != nil {
		return nil, err
	}
	return a.matchFile(ctx, e, path)
}

func (a *App) matchFile(ctx context.Context, e *match.Engine, path string) (*match.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrBinaryInput)
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	if a.cfg.StripMarkup && markup.IsMarkup(path, data) {
		text = markup.Strip(text)
	}
	return e.MatchText(ctx, text), nil
}

// FileResult is the outcome of matching one file.
type FileResult struct {
	Path   string
	Result *match.Result
	Err    error
}

// MatchFiles matches paths concurrently, at most Workers at a time, against
// the index current when the call starts. Results follow the input order;
// a failing file only sets its own Err.
func (a *App) MatchFiles(ctx context.Context, paths []string) []FileResult {
	e, err := a.Engine()
	if err != nil {
		return failAll(paths, err)
	}
	return a.matchFiles(ctx, e, paths)
}

func failAll(paths []string, err error) []FileResult {
	results := make([]FileResult, len(paths))
	for i, p := range paths {
		results[i] = FileResult{Path: p, Err: err}
	}
	return results
}

func (a *App) matchFiles(ctx context.Context, e *match.Engine, paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i, p := range paths {
		results[i].Path = p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = a.matchFile(ctx, e, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Watch reloads the index whenever a corpus file changes, until ctx is done.
// Bursts of changes collapse into one reload, and reloads are at least
// ReloadInterval apart.
func (a *App) Watch(ctx context.Context) error {
	w, err := fsw.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	var dirs []string
	for _, d := range []string{a.cfg.RulesDir, a.cfg.LicensesDir} {
		if d != "" {
			dirs = append(dirs, d)
		}
	}

	limiter := rate.NewLimiter(rate.Every(a.cfg.ReloadInterval), 1)
	pending := make(chan string, 1)
	err = w.Watch(dirs, func(path string) {
		select {
		case pending <- path:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("watch corpus: %w", err)
	}
	gologger.Info().Msgf("Watching %s", strings.Join(dirs, ", "))

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-pending:
			gologger.Verbose().Msgf("Corpus change: %s", path)
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := a.Reload(); err != nil {
				gologger.Error().Msgf("reload: %v", err)
			}
		}
	}
}

// Close releases the cache.
func (a *App) Close() error {
	return a.Store.Close()
}
