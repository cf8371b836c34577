package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/licscan/internal/adapters/socket"
	"github.com/corey/licscan/internal/app"
)

var (
	matchJSON        bool
	matchDiagnostics bool
	matchTimeout     time.Duration
	matchWorkers     int
	matchColor       string
	matchNoDaemon    bool
)

// stdinPath names standard input in results.
const stdinPath = "-"

var matchCmd = &cobra.Command{
	Use:   "match [flags] [path ...]",
	Short: "Detect licenses in files, directories or stdin",
	Long: "Matches every file against the license index and reports each detection with its rule, lines, score and coverage.\n" +
		"Uses a running daemon ('licscan daemon start') when there is one.\n" +
		"Exit status is 0 when a license is found, 1 when none is, and 2 on error.",
	Args:          cobra.ArbitraryArgs,
	RunE:          runMatch,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	f := matchCmd.Flags()
	f.BoolVar(&matchJSON, "json", false, "JSON output")
	f.BoolVarP(&matchDiagnostics, "diagnostics", "d", false, "Include matched and rule text")
	f.DurationVar(&matchTimeout, "timeout", 0, "Per-file match timeout (overrides config)")
	f.IntVarP(&matchWorkers, "workers", "j", 0, "Files matched concurrently (overrides config)")
	f.StringVar(&matchColor, "color", "auto", "Color output: auto, always, never")
	f.BoolVar(&matchNoDaemon, "no-daemon", false, "Match in-process even when a daemon is running")
}

func runMatch(cmd *cobra.Command, args []string) error {
	if err := doMatch(cmd, args); err != nil {
		if ExitCode(err) >= 0 {
			return err
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return matchExit{2}
	}
	return nil
}

func doMatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !isStdinPipe() {
		return fmt.Errorf("no input: give paths or pipe text on stdin")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Match.Timeout = matchTimeout
	}
	if matchWorkers > 0 {
		cfg.Workers = matchWorkers
	}
	diagnostics := cfg.Diagnostics || matchDiagnostics

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var in matchInput
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		in = matchInput{stdin: true, text: string(data)}
	} else {
		if in.files, err = app.CollectFiles(args); err != nil {
			return err
		}
	}

	start := time.Now()
	var reports []socket.Report
	client := socket.NewClient(socket.SocketPath(cfg.ProjectRoot))
	if !matchNoDaemon && client.Ping() {
		reports, err = matchViaDaemon(client, in, diagnostics, cfg.Match.Timeout)
	} else {
		reports, err = matchLocal(ctx, cfg, in, diagnostics)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if matchJSON {
		out, err := formatJSON(reports)
		if err != nil {
			return err
		}
		fmt.Print(out)
	} else {
		fmt.Print(formatResults(reports, diagnostics, resolveColor(matchColor), elapsed))
	}

	return exitFor(reports)
}

// matchInput is either standard input or a list of files.
type matchInput struct {
	stdin bool
	text  string
	files []string
}

// matchLocal opens the cache and matches in this process.
func matchLocal(ctx context.Context, cfg app.Config, in matchInput, diagnostics bool) ([]socket.Report, error) {
	a, err := openApp(cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	if _, _, err := a.LoadIndex(); err != nil {
		return nil, err
	}
	if in.stdin {
		return []socket.Report{a.MatchTextReport(ctx, stdinPath, in.text, diagnostics, 0)}, nil
	}
	return a.MatchReports(ctx, in.files, diagnostics, 0), nil
}

// daemonTimeout bounds one daemon match request.
const daemonTimeout = 10 * time.Minute

// matchViaDaemon sends the inputs to a running daemon. Paths are sent
// absolute and reported as given. A positive timeout overrides the daemon's
// per-file one.
func matchViaDaemon(client *socket.Client, in matchInput, diagnostics bool, timeout time.Duration) ([]socket.Report, error) {
	params := socket.MatchParams{Diagnostics: diagnostics, Timeout: timeout}
	if in.stdin {
		params.Name, params.Text = stdinPath, in.text
		res, err := client.Match(params, daemonTimeout)
		if err != nil {
			return nil, fmt.Errorf("daemon: %w", err)
		}
		return res.Reports, nil
	}

	files := in.files
	if len(files) == 0 {
		return nil, nil
	}
	abs := make([]string, len(files))
	for i, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		abs[i] = p
	}
	params.Paths = abs
	res, err := client.Match(params, daemonTimeout)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	if len(res.Reports) != len(files) {
		return nil, fmt.Errorf("daemon: %d reports for %d files", len(res.Reports), len(files))
	}
	for i := range res.Reports {
		res.Reports[i].Path = files[i]
	}
	return res.Reports, nil
}

// exitFor maps reports to the match exit status.
func exitFor(reports []socket.Report) error {
	found := false
	for _, r := range reports {
		if r.Error != "" {
			return matchExit{2}
		}
		if r.Found() {
			found = true
		}
	}
	if !found {
		return matchExit{1}
	}
	return nil
}
