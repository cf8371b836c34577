package app

import (
	"context"
	"time"

	"github.com/corey/licscan/internal/adapters/socket"
	"github.com/corey/licscan/internal/domain/match"
)

// App serves the daemon protocol.
var _ socket.Service = (*App)(nil)

// NewReport converts a file result to its reported form. Expression, group
// and detection lists are never nil so they encode as [].
func NewReport(r FileResult, diagnostics bool) socket.Report {
	rep := socket.Report{
		Path:        r.Path,
		Expressions: []string{},
		Groups:      []match.Group{},
		Detections:  []match.Detection{},
	}
	if r.Err != nil {
		rep.Error = r.Err.Error()
		return rep
	}
	if exprs := r.Result.Expressions(); exprs != nil {
		rep.Expressions = exprs
	}
	rep.LicenseExpression, rep.SPDXLicenseExpression = r.Result.LicenseExpression()
	rep.Groups = r.Result.Groups()
	rep.Detections = r.Result.Detections(diagnostics)
	rep.Truncated = r.Result.Truncated
	return rep
}

// engineWithin returns the current engine, bounded by timeout when it is
// positive.
func (a *App) engineWithin(timeout time.Duration) (*match.Engine, error) {
	e, err := a.Engine()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		e = e.WithTimeout(timeout)
	}
	return e, nil
}

// MatchReports matches files and reports each in input order. A positive
// timeout bounds each file in place of the configured one.
func (a *App) MatchReports(ctx context.Context, paths []string, diagnostics bool, timeout time.Duration) []socket.Report {
	var results []FileResult
	if e, err := a.engineWithin(timeout); err != nil {
		results = failAll(paths, err)
	} else {
		results = a.matchFiles(ctx, e, paths)
	}
	reports := make([]socket.Report, len(results))
	for i, r := range results {
		reports[i] = NewReport(r, diagnostics)
	}
	return reports
}

// MatchTextReport matches text and reports it under name.
func (a *App) MatchTextReport(ctx context.Context, name, text string, diagnostics bool, timeout time.Duration) socket.Report {
	r := FileResult{Path: name}
	if e, err := a.engineWithin(timeout); err != nil {
		r.Err = err
	} else {
		r.Result = e.MatchText(ctx, text)
	}
	return NewReport(r, diagnostics)
}

// ReloadIndex reloads the index for a daemon client, rebuilding it from the
// corpus when force is set.
func (a *App) ReloadIndex(force bool) (socket.ReloadResult, error) {
	start := time.Now()
	src := SourceBuilt
	var err error
	if force {
		_, err = a.BuildIndex()
	} else {
		_, src, err = a.LoadIndex()
	}
	if err != nil {
		return socket.ReloadResult{}, err
	}
	e, err := a.Engine()
	if err != nil {
		return socket.ReloadResult{}, err
	}
	idx := e.Index()
	return socket.ReloadResult{
		Source:    string(src),
		Rules:     len(idx.Rules()),
		Licenses:  idx.LicenseCount(),
		Tokens:    idx.Vocabulary().Len(),
		Legalese:  idx.Vocabulary().LenLegalese(),
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health describes the published index.
func (a *App) Health() socket.HealthResult {
	e, err := a.Engine()
	if err != nil {
		return socket.HealthResult{Status: "no index"}
	}
	idx := e.Index()
	return socket.HealthResult{
		Status:   "ok",
		Rules:    len(idx.Rules()),
		Licenses: idx.LicenseCount(),
		Tokens:   idx.Vocabulary().Len(),
	}
}

// IndexStats describes the cached index for a daemon client.
func (a *App) IndexStats() (socket.StatsResult, error) {
	meta, err := a.Stats()
	if err != nil {
		return socket.StatsResult{}, err
	}
	return socket.StatsResult{Meta: meta, DBPath: a.cfg.DBPath}, nil
}

// Serve runs the daemon on sockPath until ctx is done or a client asks it to
// stop. With watch set, corpus changes are reloaded meanwhile.
func (a *App) Serve(ctx context.Context, sockPath string, watch bool) error {
	srv := socket.NewServer(a, sockPath)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	if !watch {
		select {
		case <-ctx.Done():
		case <-srv.ShutdownCh():
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	watchErr := make(chan error, 1)
	go func() { watchErr <- a.Watch(ctx) }()

	select {
	case <-ctx.Done():
	case <-srv.ShutdownCh():
	case err := <-watchErr:
		cancel()
		return err
	}
	// The watcher must be done before the caller closes the cache.
	cancel()
	return <-watchErr
}
