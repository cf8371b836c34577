package cmd

import (
	"fmt"
	"os"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/spf13/cobra"

	"github.com/corey/licscan/internal/app"
)

var (
	flagConfig   string
	flagRules    string
	flagLicenses string
	flagVerbose  bool
	flagDebug    bool
	flagSilent   bool
)

var rootCmd = &cobra.Command{
	Use:   "licscan",
	Short: "licscan — license text detection",
	Long:  "Finds known license texts, notices, tags and references in files, with exact positions and scores.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case flagSilent:
			gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
		case flagVerbose:
			gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
		case flagDebug:
			gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
		}
	},
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(projectRoot(), flagConfig)
	if err != nil {
		return app.Config{}, err
	}
	if flagRules != "" {
		cfg.RulesDir = flagRules
	}
	if flagLicenses != "" {
		cfg.LicensesDir = flagLicenses
	}
	return cfg, nil
}

// openApp opens the cache, translating a lock timeout into guidance.
func openApp(cfg app.Config) (*app.App, error) {
	a, err := app.New(cfg)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("cannot open index: %s", diagnoseDBLock(cfg.DBPath))
		}
		return nil, err
	}
	return a, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default .licscan/config.yml)")
	pf.StringVar(&flagRules, "rules", "", "Rules directory (overrides config)")
	pf.StringVar(&flagLicenses, "licenses", "", "Licenses directory (overrides config)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Show index build and per-stage details")
	pf.BoolVar(&flagDebug, "debug", false, "Show per-stage match counts")
	pf.BoolVar(&flagSilent, "silent", false, "Show results only")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
}
