package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"shelfscan/internal/book"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// UI writes human output to out and progress to errOut. In JSON mode only
// the final document goes to out.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	jsonMode bool
}

func NewUI(out, errOut io.Writer, jsonMode bool) *UI {
	return &UI{out: out, errOut: errOut, jsonMode: jsonMode}
}

func (ui *UI) Success(format string, args ...any) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgGreen).Fprintf(ui.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

func (ui *UI) Info(format string, args ...any) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgCyan).Fprintf(ui.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

func (ui *UI) Warning(format string, args ...any) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgYellow).Fprintf(ui.errOut, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func (ui *UI) JSON(v any) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Spinner starts an indeterminate spinner; call the returned func to stop it.
func (ui *UI) Spinner(message string) func() {
	if ui.jsonMode {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.errOut
	s.Start()
	return s.Stop
}

// Progress returns a bar over total steps.
func (ui *UI) Progress(total int, description string) *progressbar.ProgressBar {
	w := ui.errOut
	if ui.jsonMode {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}

// Books prints a table of books. withCovers adds the cover column.
func (ui *UI) Books(books []book.Book, withCovers bool) {
	tw := tabwriter.NewWriter(ui.out, 0, 0, 2, ' ', 0)
	if withCovers {
		fmt.Fprintln(tw, "TITLE\tAUTHOR\tGENRE\tSTATUS\tCOVER")
	} else {
		fmt.Fprintln(tw, "TITLE\tAUTHOR\tGENRE\tSTATUS")
	}
	for _, b := range books {
		if withCovers {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\n", b.Title, b.Author, b.Genre, b.Status, b.Cover.Source, b.Cover.URL)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Title, b.Author, b.Genre, b.Status)
		}
	}
	_ = tw.Flush()
}

// Plain prints a line without decoration.
func (ui *UI) Plain(line string) {
	fmt.Fprintln(ui.out, line)
}
