package adapters

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"

	"github.com/pagewatch/pagewatch/core"
	"github.com/pagewatch/pagewatch/internal/file"
)

// ConsoleReporter returns a handler that prints change reports to w, one
// prefixed line per diff line. Whether to colorize is an explicit choice of
// the caller, never derived from process-global terminal state, so tests can
// inject plain sinks.
func ConsoleReporter(w io.Writer, colored bool) core.OnChangeHandler {
	return func(change *core.Change) {
		writeChange(w, colored, change)
	}
}

// FileChangeLogger appends plain (uncolored) change reports to the named
// file, with a header line identifying the URL and time.
func FileChangeLogger(name string) core.OnChangeHandler {
	return func(change *core.Change) {
		f, err := file.Append(name)
		if err != nil {
			log.Error().Err(err).Str("file", name).Msg("failed to open change log")
			return
		}
		defer f.Close()
		fmt.Fprintf(f, "=== %s %s\n", change.RequestURL, time.Now().Format(time.RFC3339))
		writeChange(f, false, change)
	}
}

// RenderPrinter returns a handler that prints full renderings verbatim,
// used when diffing is disabled.
func RenderPrinter(w io.Writer) core.OnRenderHandler {
	return func(rendering *core.Rendering) {
		fmt.Fprintln(w, strings.TrimRight(rendering.Text, "\n"))
	}
}

func writeChange(w io.Writer, colored bool, change *core.Change) {
	for _, line := range change.Lines {
		out := line.Kind.String() + line.Text
		if colored {
			// text.Escape applies the sequence unconditionally, unlike
			// Sprint which consults the package-global terminal detection.
			switch line.Kind {
			case core.Removed:
				out = text.Escape(out, text.FgHiRed.EscapeSeq())
			case core.Added:
				out = text.Escape(out, text.FgHiGreen.EscapeSeq())
			}
		}
		fmt.Fprintln(w, out)
	}
}
