package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client connects to the licscan daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// MatchPaths asks the daemon to match files. Paths must be absolute: the
// daemon may run from another directory.
func (c *Client) MatchPaths(paths []string, diagnostics bool, timeout time.Duration) (*MatchResult, error) {
	return c.Match(MatchParams{Paths: paths, Diagnostics: diagnostics}, timeout)
}

// MatchText asks the daemon to match text, reported under name.
func (c *Client) MatchText(name, text string, diagnostics bool, timeout time.Duration) (*MatchResult, error) {
	return c.Match(MatchParams{Text: text, Name: name, Diagnostics: diagnostics}, timeout)
}

// Match sends a match request with explicit params. timeout bounds the
// whole call; params.Timeout bounds matching each input.
func (c *Client) Match(params MatchParams, timeout time.Duration) (*MatchResult, error) {
	var result MatchResult
	err := c.callInto(Request{
		ID:     "1",
		Method: MethodMatch,
		Params: params,
	}, timeout, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.callInto(Request{ID: "1", Method: MethodHealth}, defaultTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats sends a stats request.
func (c *Client) Stats() (*StatsResult, error) {
	var result StatsResult
	if err := c.callInto(Request{ID: "1", Method: MethodStats}, defaultTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the daemon to reload its index, rebuilding it when force is
// set. Uses an extended timeout: a rebuild tokenizes the whole corpus.
func (c *Client) Reload(force bool) (*ReloadResult, error) {
	var result ReloadResult
	err := c.callInto(Request{
		ID:     "1",
		Method: MethodReload,
		Params: ReloadParams{Force: force},
	}, 120*time.Second, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{ID: "1", Method: MethodShutdown}, defaultTimeout)
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

const defaultTimeout = 5 * time.Second

// callInto sends req and decodes the result into dst.
func (c *Client) callInto(req Request, timeout time.Duration, dst interface{}) error {
	resp, err := c.call(req, timeout)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(resultJSON, dst); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) call(req Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
