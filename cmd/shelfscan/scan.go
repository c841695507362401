package main

import (
	"context"
	"errors"
	"fmt"

	"shelfscan/internal/book"
	"shelfscan/internal/cover"
	"shelfscan/internal/extract"
	"shelfscan/internal/platform/logging"
	"shelfscan/internal/shelf"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <image>",
		Short: "Detect the books in a bookshelf photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts, args[0])
		},
	}
}

func runScan(ctx context.Context, opts *rootOptions, path string) error {
	ui := opts.ui
	key := opts.cfg.OpenAI.APIKey
	if key == "" {
		return errors.New("no API key: set OPENAI_API_KEY or pass --api-key")
	}
	if !shelf.LooksLikeAPIKey(key) {
		ui.Warning("API key does not look like an OpenAI key")
	}

	a, err := opts.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stop := ui.Spinner("Analyzing image...")
	books, err := a.Pipeline.AnalyzeFile(ctx, path, key)
	stop()
	if err != nil {
		return describeScanError(err)
	}

	if len(books) == 0 {
		ui.Info("No books were detected in the image")
		if opts.json {
			return ui.JSON([]book.Book{})
		}
		return nil
	}
	ui.Success("%d book(s) detected!", len(books))
	if !opts.json {
		ui.Books(books, false)
	}

	library := shelf.NewLibrary()
	run := library.Replace(books)

	bar := ui.Progress(len(books), "Finding covers")
	loader := cover.NewLoader(progressResolver{next: a.Resolver, bar: bar}, opts.cfg.Covers.MaxInFlight, logging.Component(a.Logger, "cover"))
	found := 0
	loader.Load(ctx, run.Books, func(u cover.Update) {
		if library.ApplyCover(run.ID, u) {
			found++
		}
	})
	library.Settle(run.ID)
	_ = bar.Finish()

	snap := library.Snapshot()
	if opts.json {
		return ui.JSON(snap.Books)
	}
	ui.Info("Found %d of %d covers", found, len(books))
	ui.Books(snap.Books, true)
	return nil
}

// progressResolver advances the bar as each resolution settles, found or not.
type progressResolver struct {
	next cover.CoverResolver
	bar  *progressbar.ProgressBar
}

func (p progressResolver) Resolve(ctx context.Context, title, author string) cover.Outcome {
	out := p.next.Resolve(ctx, title, author)
	_ = p.bar.Add(1)
	return out
}

func describeScanError(err error) error {
	var (
		parseErr *extract.ParseError
		shapeErr *extract.ShapeError
	)
	switch {
	case errors.As(err, &parseErr), errors.As(err, &shapeErr):
		return fmt.Errorf("the model reply could not be read as a book list: %w", err)
	default:
		return err
	}
}
