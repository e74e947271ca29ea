// Command taskboard-server runs the task-board REST API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/taskboard/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskboard-server",
		Short:         "Personal task-board API server",
		Version:       version + " (" + buildDate + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to YAML config file")
	root.PersistentFlags().String("dsn", "", "PostgreSQL DSN (overrides config)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	return root
}

// loadConfig reads the config file and environment, then applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"dsn", &cfg.DB.DSN},
		{"addr", &cfg.HTTP.Addr},
		{"limiter", &cfg.Limiter.Backend},
	}
	for _, o := range overrides {
		f := cmd.Flags().Lookup(o.flag)
		if f != nil && f.Changed {
			*o.dst = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("dev"); f != nil && f.Changed {
		cfg.Log.Development, _ = cmd.Flags().GetBool("dev")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
