package socket

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/licscan/internal/domain/match"
	"github.com/corey/licscan/internal/ports"
)

// fakeService reports "mit" for any input containing "MIT". Inputs matched
// with a timeout come back truncated.
type fakeService struct {
	mu       sync.Mutex
	reloads  []bool
	failing  bool
	timeouts []time.Duration
}

func (f *fakeService) report(name, text string, diagnostics bool, timeout time.Duration) Report {
	f.mu.Lock()
	f.timeouts = append(f.timeouts, timeout)
	f.mu.Unlock()

	r := Report{Path: name, Expressions: []string{}, Detections: []match.Detection{}, Truncated: timeout > 0}
	if strings.Contains(text, "MIT") {
		d := match.Detection{RuleIdentifier: "mit_1", LicenseExpression: "mit", Matcher: "hash"}
		if diagnostics {
			d.MatchedText = text
		}
		r.Expressions = []string{"mit"}
		r.Detections = []match.Detection{d}
	}
	return r
}

func (f *fakeService) MatchReports(ctx context.Context, paths []string, diagnostics bool, timeout time.Duration) []Report {
	out := make([]Report, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			out[i] = Report{Path: p, Error: err.Error()}
			continue
		}
		out[i] = f.report(p, string(data), diagnostics, timeout)
	}
	return out
}

func (f *fakeService) MatchTextReport(ctx context.Context, name, text string, diagnostics bool, timeout time.Duration) Report {
	return f.report(name, text, diagnostics, timeout)
}

func (f *fakeService) matchTimeouts() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.timeouts...)
}

func (f *fakeService) ReloadIndex(force bool) (ReloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return ReloadResult{}, errors.New("corpus: unknown license key")
	}
	f.reloads = append(f.reloads, force)
	return ReloadResult{Source: "built", Rules: 3}, nil
}

func (f *fakeService) setFailing() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = true
}

func (f *fakeService) reloadCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.reloads...)
}

func (f *fakeService) Health() HealthResult {
	return HealthResult{Status: "ok", Rules: 3, Licenses: 2, Tokens: 40}
}

func (f *fakeService) IndexStats() (StatsResult, error) {
	return StatsResult{Meta: &ports.CacheMeta{FormatVersion: 1, Rules: 3}, DBPath: "/p/.licscan/index.db"}, nil
}

// testSocketPath returns a unique socket path for a test.
func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.sock")
}

func startServer(t *testing.T, svc Service) (*Server, *Client) {
	t.Helper()
	sockPath := testSocketPath(t)
	srv := NewServer(svc, sockPath)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv, NewClient(sockPath)
}

func TestSocketPath(t *testing.T) {
	a := SocketPath("/home/u/project")
	assert.Equal(t, a, SocketPath("/home/u/project"))
	assert.NotEqual(t, a, SocketPath("/home/u/other"))
	assert.True(t, strings.HasPrefix(a, "/tmp/licscan-"))
	assert.True(t, strings.HasSuffix(a, ".sock"))
}

func TestServer_MatchText(t *testing.T) {
	_, client := startServer(t, &fakeService{})

	result, err := client.MatchText("-", "Released under the MIT license", true, 0)
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)

	r := result.Reports[0]
	assert.Equal(t, "-", r.Path)
	assert.True(t, r.Found())
	assert.Equal(t, []string{"mit"}, r.Expressions)
	assert.Equal(t, "mit_1", r.Detections[0].RuleIdentifier)
	assert.Equal(t, "Released under the MIT license", r.Detections[0].MatchedText)
	assert.NotEmpty(t, result.Elapsed)

	result, err = client.MatchText("-", "nothing here", false, 0)
	require.NoError(t, err)
	assert.False(t, result.Reports[0].Found())
}

func TestServer_MatchPaths(t *testing.T) {
	_, client := startServer(t, &fakeService{})

	dir := t.TempDir()
	lic := filepath.Join(dir, "LICENSE")
	require.NoError(t, os.WriteFile(lic, []byte("MIT License"), 0o644))
	missing := filepath.Join(dir, "missing")

	result, err := client.MatchPaths([]string{lic, missing}, false, 0)
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)
	assert.True(t, result.Reports[0].Found())
	assert.Empty(t, result.Reports[0].Detections[0].MatchedText)
	assert.Equal(t, missing, result.Reports[1].Path)
	assert.NotEmpty(t, result.Reports[1].Error)
	assert.False(t, result.Reports[1].Found())
}

func TestServer_MatchTimeout(t *testing.T) {
	svc := &fakeService{}
	_, client := startServer(t, svc)

	result, err := client.Match(MatchParams{Name: "-", Text: "MIT", Timeout: 250 * time.Millisecond}, 0)
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)
	assert.True(t, result.Reports[0].Truncated)

	result, err = client.MatchText("-", "MIT", false, 0)
	require.NoError(t, err)
	assert.False(t, result.Reports[0].Truncated)

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 0}, svc.matchTimeouts())
}

func TestServer_Health(t *testing.T) {
	_, client := startServer(t, &fakeService{})

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.Rules)
	assert.Equal(t, 2, health.Licenses)
	assert.NotEmpty(t, health.Uptime)
}

func TestServer_Stats(t *testing.T) {
	_, client := startServer(t, &fakeService{})

	st, err := client.Stats()
	require.NoError(t, err)
	require.NotNil(t, st.Meta)
	assert.Equal(t, 3, st.Meta.Rules)
	assert.Equal(t, "/p/.licscan/index.db", st.DBPath)
}

func TestServer_Reload(t *testing.T) {
	svc := &fakeService{}
	_, client := startServer(t, svc)

	res, err := client.Reload(true)
	require.NoError(t, err)
	assert.Equal(t, "built", res.Source)
	_, err = client.Reload(false)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, svc.reloadCalls())

	svc.setFailing()
	_, err = client.Reload(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown license key")
}

func TestServer_UnknownMethod(t *testing.T) {
	_, client := startServer(t, &fakeService{})
	_, err := client.call(Request{ID: "1", Method: "search"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method: search")
}

func TestServer_Shutdown(t *testing.T) {
	sockPath := testSocketPath(t)
	srv := NewServer(&fakeService{}, sockPath)
	require.NoError(t, srv.Start())

	client := NewClient(sockPath)
	assert.True(t, client.Ping())

	require.NoError(t, client.Shutdown())

	select {
	case <-srv.ShutdownCh():
	default:
		t.Fatal("ShutdownCh should be closed after Shutdown request")
	}

	srv.Stop()

	_, err := os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err), "socket file should be removed after shutdown")
	assert.False(t, client.Ping())
}

func TestServer_ConcurrentClients(t *testing.T) {
	_, client := startServer(t, &fakeService{})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				result, err := client.MatchText("-", "MIT", false, 0)
				if err != nil {
					errs <- err
					return
				}
				if len(result.Reports) != 1 || !result.Reports[0].Found() {
					errs <- assert.AnError
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent client error: %v", err)
	}
}

func TestServer_AlreadyRunning(t *testing.T) {
	srv, _ := startServer(t, &fakeService{})
	second := NewServer(&fakeService{}, srv.Addr())
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServer_StaleSocket(t *testing.T) {
	sockPath := testSocketPath(t)
	require.NoError(t, os.WriteFile(sockPath, []byte("stale"), 0600))

	srv := NewServer(&fakeService{}, sockPath)
	require.NoError(t, srv.Start(), "should replace stale socket")
	defer srv.Stop()

	health, err := NewClient(sockPath).Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}
