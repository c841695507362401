package main

import (
	"context"
	"io"
	"os"

	"shelfscan/internal/app"
	"shelfscan/internal/config"
	"shelfscan/internal/platform/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	apiKey  string
	verbose bool
	noColor bool
	json    bool

	cfg config.Config
	ui  *UI
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shelfscan",
		Short: "Detect books in a bookshelf photo and find their covers",
		Long: `shelfscan sends a bookshelf photo to a vision model, turns the reply into
a list of books and looks up a cover for each one on Open Library. Books
without a known cover get a generated placeholder.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnvFiles()
			if opts.cfgFile != "" {
				if err := os.Setenv("SHELFSCAN_CONFIG", opts.cfgFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.apiKey != "" {
				cfg.OpenAI.APIKey = opts.apiKey
			}
			opts.cfg = cfg

			if opts.noColor {
				color.NoColor = true
			}
			opts.ui = NewUI(out, errOut, opts.json)
			return nil
		},
	}

	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "OpenAI API key (defaults to OPENAI_API_KEY)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newScanCmd(opts),
		newCoverCmd(opts),
		newPlaceholderCmd(opts),
	)
	return cmd
}

// build wires the services with a logger that stays quiet unless --verbose.
func (o *rootOptions) build(ctx context.Context) (*app.App, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Format:  "console",
		Output:  o.ui.errOut,
		Service: "shelfscan",
	})
	return app.New(ctx, o.cfg, logger)
}
