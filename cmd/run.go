package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/widgetprobe/internal/browser"
	"github.com/xkilldash9x/widgetprobe/internal/config"
	"github.com/xkilldash9x/widgetprobe/internal/observability"
	"github.com/xkilldash9x/widgetprobe/internal/runner"
	"github.com/xkilldash9x/widgetprobe/internal/suite"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the suite against the configured target page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// An explicit --base-url beats the config file and environment.
		if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
			viper.Set("target.base_url", baseURL)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := observability.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer observability.Sync(logger)

		logger.Info("widgetprobe starting", zap.String("version", Version))

		r := runner.New(cfg, logger, browserFactory)
		r.Register(suite.Cases()...)

		summary, err := r.Run(cmd.Context())
		if err != nil {
			return err
		}

		if err := summary.WriteJSON(cfg.Report.JSONPath); err != nil {
			return err
		}
		if err := summary.WriteJUnit(cfg.Report.JUnitPath); err != nil {
			return err
		}
		logger.Info("reports written",
			zap.String("json", cfg.Report.JSONPath),
			zap.String("junit", cfg.Report.JUnitPath),
		)

		if failed := summary.Failed(); failed > 0 {
			return fmt.Errorf("%d of %d cases failed", failed, len(summary.Cases))
		}
		return nil
	},
}

// browserFactory adapts browser.NewSession to the runner's factory shape.
func browserFactory(ctx context.Context, cfg *config.Config, project config.BrowserProject, logger *zap.Logger) (runner.Session, error) {
	return browser.NewSession(ctx, cfg, project, logger)
}

func init() {
	runCmd.Flags().StringSlice("category", nil, "restrict the run to the given categories (smoke, functional, visual, accessibility)")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().String("base-url", "", "override the target page URL")

	_ = viper.BindPFlag("suite.categories", runCmd.Flags().Lookup("category"))
	_ = viper.BindPFlag("browser.headless", runCmd.Flags().Lookup("headless"))

	rootCmd.AddCommand(runCmd)
}
