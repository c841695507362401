package main

import (
	"context"

	"shelfscan/internal/cover"
	"shelfscan/internal/placeholder"

	"github.com/spf13/cobra"
)

func newCoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cover <title> <author>",
		Short: "Find the cover for one book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCover(cmd.Context(), opts, args[0], args[1])
		},
	}
}

func runCover(ctx context.Context, opts *rootOptions, title, author string) error {
	a, err := opts.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stop := opts.ui.Spinner("Looking up cover...")
	out := a.Resolver.Resolve(ctx, title, author)
	stop()

	if opts.json {
		return opts.ui.JSON(out)
	}
	printOutcome(opts.ui, out)
	return nil
}

func printOutcome(ui *UI, out cover.Outcome) {
	if out.IsResolved() {
		ui.Success("Cover found (ISBN %s)", out.ISBN)
	} else {
		ui.Info("Using placeholder: %s", out.Reason)
	}
	ui.Plain(out.URL)
}

func newPlaceholderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "placeholder <title> <author>",
		Short: "Print the placeholder cover locator for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := placeholder.New(opts.cfg.Placeholder.BaseURL).URL(args[0], args[1])
			if opts.json {
				return opts.ui.JSON(map[string]string{"url": url})
			}
			opts.ui.Plain(url)
			return nil
		},
	}
}
