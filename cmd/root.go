package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/vibedom/internal/config"
	"github.com/chrisuehlinger/vibedom/internal/observability"
)

// app holds what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfgFile string
	viper   *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds the vibedom command tree.
func NewRootCommand() *cobra.Command {
	a := &app{viper: viper.New(), logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:           "vibedom",
		Short:         "Run scripts against a garbage-collected DOM.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.viper, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = observability.NewStderrLogger(cfg.Logger)
			a.logger.Debug("configuration loaded", zap.Any("heap", cfg.Heap))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./vibedom.yaml)")
	flags.Bool("stress-gc", false, "collect before every allocation")
	flags.Int("max-slots", 0, "maximum live heap slots (0 keeps the configured value)")
	flags.String("log-level", "", "log level")
	_ = a.viper.BindPFlag("heap.stress", flags.Lookup("stress-gc"))
	_ = a.viper.BindPFlag("logger.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(newRunCommand(a), newStatsCommand(a))
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
