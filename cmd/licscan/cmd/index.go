package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/licscan/internal/adapters/socket"
)

var indexClearForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build, inspect or clear the cached license index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from the corpus and cache it",
	RunE:  runIndexBuild,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the cached index",
	RunE:  runIndexStats,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached index",
	Long:  "Deletes the cached index. The next match rebuilds it from the corpus unless allow_rebuild is off.",
	RunE:  runIndexClear,
}

func init() {
	indexClearCmd.Flags().BoolVar(&indexClearForce, "force", false, "Skip confirmation prompt")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexClearCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if client := socket.NewClient(socket.SocketPath(cfg.ProjectRoot)); client.Ping() {
		res, err := client.Reload(true)
		if err != nil {
			return err
		}
		fmt.Printf("⚡ daemon indexed %d rules, %d licenses, %d tokens (%d legalese) in %dms\n",
			res.Rules, res.Licenses, res.Tokens, res.Legalese, res.ElapsedMs)
		return nil
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	idx, err := a.BuildIndex()
	if err != nil {
		return err
	}
	fmt.Printf("⚡ indexed %d rules, %d licenses, %d tokens (%d legalese) in %s\n",
		len(idx.Rules()), idx.LicenseCount(), idx.Vocabulary().Len(), idx.Vocabulary().LenLegalese(),
		time.Since(start).Round(time.Millisecond))
	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if client := socket.NewClient(socket.SocketPath(cfg.ProjectRoot)); client.Ping() {
		st, err := client.Stats()
		if err != nil {
			return err
		}
		fmt.Print(formatStats(st.Meta, cfg))
		return nil
	}
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		fmt.Print(formatStats(nil, cfg))
		return nil
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	meta, err := a.Stats()
	if err != nil {
		return err
	}
	fmt.Print(formatStats(meta, cfg))
	return nil
}

func runIndexClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if socket.NewClient(socket.SocketPath(cfg.ProjectRoot)).Ping() {
		return fmt.Errorf("daemon is running: stop it first (licscan daemon stop)")
	}
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		fmt.Println("no index to clear")
		return nil
	}

	if !indexClearForce {
		fmt.Printf("This will delete the cached index at %s. Continue? [y/N] ", cfg.DBPath)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ClearIndex(); err != nil {
		return err
	}
	fmt.Println("index cleared")
	return nil
}
