package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectdiscovery/gologger"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the cached index current while the corpus is edited",
	Long:  "Loads the index, then rebuilds and re-caches it whenever a rule or license file changes. Stops on interrupt.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Watching exists to rebuild.
	cfg.AllowRebuild = true

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, src, err := a.LoadIndex()
	if err != nil {
		return err
	}
	gologger.Info().Msgf("Index ready (%s): %d rules", src, len(idx.Rules()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Watch(ctx)
}
