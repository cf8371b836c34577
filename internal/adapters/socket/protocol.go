// Package socket implements a JSON-over-Unix-socket protocol for the licscan
// daemon. The protocol uses newline-delimited JSON: each message is one JSON
// object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/licscan/internal/domain/match"
	"github.com/corey/licscan/internal/ports"
)

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/licscan-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/licscan-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodMatch    = "match"
	MethodHealth   = "health"
	MethodStats    = "stats"
	MethodReload   = "reload"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// MatchParams is the params for a match request: either absolute file
// paths, or Text when Paths is empty. A positive Timeout bounds each input's
// match in place of the daemon's configured one.
type MatchParams struct {
	Paths       []string      `json:"paths,omitempty"`
	Text        string        `json:"text,omitempty"`
	Name        string        `json:"name,omitempty"` // reported path for Text
	Diagnostics bool          `json:"diagnostics,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// MatchResult is the result of a match request.
type MatchResult struct {
	Reports []Report `json:"reports"`
	Elapsed string   `json:"elapsed"`
}

// Report is one input's detections. It is also the JSON form printed by
// the CLI.
type Report struct {
	Path                  string            `json:"path"`
	LicenseExpression     string            `json:"license_expression,omitempty"`
	SPDXLicenseExpression string            `json:"spdx_license_expression,omitempty"`
	Expressions           []string          `json:"license_expressions"`
	Groups                []match.Group     `json:"license_detections"`
	Detections            []match.Detection `json:"detections"`
	Truncated             bool              `json:"truncated,omitempty"`
	Error                 string            `json:"error,omitempty"`
}

// Found reports whether any license was detected.
func (r Report) Found() bool {
	return r.Error == "" && len(r.Detections) > 0
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status   string `json:"status"`
	Rules    int    `json:"rules"`
	Licenses int    `json:"licenses"`
	Tokens   int    `json:"tokens"`
	Uptime   string `json:"uptime"`
}

// ReloadParams is the params for a reload request. Force rebuilds even
// when the cached index is current.
type ReloadParams struct {
	Force bool `json:"force,omitempty"`
}

// ReloadResult is the result of a reload request.
type ReloadResult struct {
	Source    string `json:"source"`
	Rules     int    `json:"rules"`
	Licenses  int    `json:"licenses"`
	Tokens    int    `json:"tokens"`
	Legalese  int    `json:"legalese"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// StatsResult is the result of a stats request. Meta is nil when no index
// is cached.
type StatsResult struct {
	Meta   *ports.CacheMeta `json:"meta,omitempty"`
	DBPath string           `json:"db_path"`
}
