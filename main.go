package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/adapters"
	"github.com/pagewatch/pagewatch/core"
)

var opts struct {
	StateDir  string
	NoDiff    bool
	Color     string
	Verbose   int
	Interval  time.Duration
	KeepGoing bool
	Timeout   time.Duration
	LogFile   string
	Headers   []string
}

var rootCmd = &cobra.Command{
	Use:           "pagewatch [flags] URL...",
	Short:         "pagewatch fetches web pages and reports what changed since the last run.",
	Version:       core.Version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.StateDir, "state-dir", "s", "", "where to store state (default ~/.pagewatch)")
	flags.BoolVar(&opts.NoDiff, "no-diff", false, "just render the page, ignoring changes")
	flags.StringVar(&opts.Color, "color", "auto", "whether to output in color (auto|always|never)")
	flags.CountVarP(&opts.Verbose, "verbose", "v", "verbosity (may be repeated up to three times)")
	flags.DurationVar(&opts.Interval, "interval", 0, "re-check repeatedly at this interval instead of once")
	flags.BoolVar(&opts.KeepGoing, "keep-going", false, "continue with remaining URLs when one fails")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	flags.StringVar(&opts.LogFile, "log-file", "", "append change reports to this file")
	flags.StringArrayVar(&opts.Headers, "header", nil, "extra request header as 'Name: value' (repeatable)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, text.Escape("Error: "+err.Error(), text.FgHiRed.EscapeSeq()))
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}

	urls, err := parseURLs(args)
	if err != nil {
		return err
	}
	colored, err := colorChoice(opts.Color)
	if err != nil {
		return err
	}
	header, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	config := core.NewConfig(stateDir())
	config.RequestHeader = header
	config.Timeout = opts.Timeout
	config.NoDiff = opts.NoDiff
	config.KeepGoing = opts.KeepGoing
	config.Interval = opts.Interval
	config.Logger = logger

	onChange := adapters.ConsoleReporter(os.Stdout, colored)
	if opts.LogFile != "" {
		onChange = core.MergeOnChangeHandlers(onChange, adapters.FileChangeLogger(opts.LogFile))
	}
	config.OnChange = onChange
	config.OnRender = adapters.RenderPrinter(os.Stdout)

	monitor, err := core.NewMonitor(config)
	if err != nil {
		return err
	}
	if opts.Interval > 0 {
		return monitor.Watch(cmd.Context(), urls)
	}
	return monitor.Run(cmd.Context(), urls)
}

func newLogger(verbose int) (zerolog.Logger, error) {
	var level zerolog.Level
	switch verbose {
	case 0:
		level = zerolog.WarnLevel
	case 1:
		level = zerolog.InfoLevel
	case 2:
		level = zerolog.DebugLevel
	case 3:
		level = zerolog.TraceLevel
	default:
		return zerolog.Nop(), fmt.Errorf("-v is only allowed up to 3 times")
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// parseURLs validates and normalizes the watched URLs. An empty list is
// legal and performs no work.
func parseURLs(args []string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		u, err := url.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", arg, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("invalid URL %q: must be absolute", arg)
		}
		urls = append(urls, u.String())
	}
	return urls, nil
}

// colorChoice resolves the --color flag to a concrete decision once, here,
// so everything downstream takes it as a plain value.
func colorChoice(choice string) (bool, error) {
	switch choice {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		info, err := os.Stdout.Stat()
		if err != nil {
			return false, nil
		}
		return info.Mode()&os.ModeCharDevice != 0, nil
	}
	return false, fmt.Errorf("invalid color choice %q (auto|always|never)", choice)
}

func parseHeaders(headers []string) (http.Header, error) {
	header := make(http.Header)
	for _, raw := range headers {
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", raw)
		}
		header.Add(parts[0], strings.TrimLeft(parts[1], " "))
	}
	return header, nil
}

func stateDir() string {
	if opts.StateDir != "" {
		return opts.StateDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagewatch"
	}
	return filepath.Join(home, ".pagewatch")
}
