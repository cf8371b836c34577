package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/licscan/internal/adapters/socket"
)

var daemonNoWatch bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the licscan daemon",
	Long:  "The daemon keeps the index loaded and serves match requests over a Unix socket, so each match skips loading the index.",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	RunE:  runDaemonStatus,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonNoWatch, "no-watch", false, "Do not reload on corpus changes")
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sockPath := socket.SocketPath(cfg.ProjectRoot)

	if socket.NewClient(sockPath).Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}
	if !daemonNoWatch {
		cfg.AllowRebuild = true
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, src, err := a.LoadIndex()
	if err != nil {
		return err
	}

	fmt.Printf("⚡ licscan daemon started at %s (%s index, %d rules)\n", sockPath, src, len(idx.Rules()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Serve(ctx, sockPath, !daemonNoWatch); err != nil {
		return err
	}
	fmt.Println("\n⚡ shutting down...")
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))

	if !client.Ping() {
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if !client.Ping() {
		fmt.Println("⚡ daemon is not running")
		return nil
	}
	h, err := client.Health()
	if err != nil {
		return err
	}
	fmt.Printf("⚡ daemon %s │ %d rules │ %d licenses │ %d tokens │ up %s\n",
		h.Status, h.Rules, h.Licenses, h.Tokens, h.Uptime)
	return nil
}
