package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/services"
)

var (
	cfgFile string
	version = "ledger v1.0.2"
	logger  = log.Discard()

	rootCmd = &cobra.Command{
		Use:   "ledgerctl",
		Short: "Manage the personal bill ledger from the terminal",
		Long: `ledgerctl reads and edits the same ledger the HTTP server uses.

Storage, timezone and logging come from the environment (DATA_BACKEND,
DATA_DIR, LEDGER_TIMEZONE, ...), a config.yaml, or the flags below.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "data backend (memory, file, sqlite)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory of the file backend")
	rootCmd.PersistentFlags().String("sqlite-path", "", "database path of the sqlite backend")
	rootCmd.PersistentFlags().String("timezone", "", "IANA zone used for calendar grouping")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("data.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("data.dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("sqlite.path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("timezone", rootCmd.PersistentFlags().Lookup("timezone"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(importOFXCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := cli.SignalContext(context.Background(), logger)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/ledger")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LEDGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	l, err := cli.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format"), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger = l.WithComponent(log.ComponentCLI)
	return nil
}

// loadConfig starts from the server's environment configuration and applies
// whatever viper resolved from flags, LEDGER_* variables or the config file.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if v := viper.GetString("data.backend"); v != "" {
		cfg.DataBackend = v
	}
	if v := viper.GetString("data.dir"); v != "" {
		cfg.DataDir = v
	}
	if v := viper.GetString("sqlite.path"); v != "" {
		cfg.SQLiteDBPath = v
	}
	if v := viper.GetString("timezone"); v != "" {
		cfg.Timezone = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLedger opens the configured ledger, seeding it like the server does.
// The caller closes the returned service.
func openLedger(ctx context.Context) (*services.LedgerService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	svc, err := cli.OpenLedger(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	if cfg.SeedOnStart {
		if _, err := svc.EnsureSeeded(ctx); err != nil {
			_ = svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

// withLedger runs fn against an opened ledger and closes it afterwards.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, svc *services.LedgerService) error) error {
	ctx := cmd.Context()
	svc, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("Failed to close ledger", log.FieldError, err)
		}
	}()
	return fn(ctx, svc)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
