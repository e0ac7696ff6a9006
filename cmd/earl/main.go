// Command earl parses an Atom or RSS document and prints its items.
//
//	earl [--format json|yaml] [--strict] <file | URL | ->
package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/earl/app/cfg"
	"github.com/lysyi3m/earl/app/feed"
	"github.com/lysyi3m/earl/app/parser"
	"gopkg.in/yaml.v3"
)

type options struct {
	Format    string `short:"f" long:"format" choice:"json" choice:"yaml" default:"json" description:"Output format"`
	Strict    bool   `long:"strict" description:"Fail on unparsable entry ids instead of replacing them"`
	Timeout   int    `long:"timeout" default:"30" description:"Fetch timeout in seconds for URL sources"`
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent for URL sources (default earl/<version>)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Log skipped elements and other details"`

	Args struct {
		Source string `positional-arg-name:"source" description:"File path, http(s) URL, or - for stdin"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), opts, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("Failed to parse feed", "source", opts.Args.Source, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	data, err := readSource(ctx, opts, stdin)
	if err != nil {
		return err
	}

	parserOpts := []parser.Option{parser.WithLogger(logger)}
	if !opts.Strict {
		parserOpts = append(parserOpts, parser.WithLenientIdentifiers())
	}

	_, _, doc, err := feed.NewParser(parserOpts...).Run(data)
	if err != nil {
		return err
	}

	for _, d := range doc.Defects {
		logger.Warn("Defect", "element", d.Element, "field", d.Field, "reason", d.Reason)
	}

	return render(stdout, opts.Format, feed.NewDocumentView(doc))
}

func readSource(ctx context.Context, opts options, stdin io.Reader) ([]byte, error) {
	source := opts.Args.Source

	switch {
	case source == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		ctx, cancel := context.WithTimeout(ctx, time.Duration(opts.Timeout)*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", cmp.Or(opts.UserAgent, "earl/"+cfg.GetVersion()))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP error: %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		return os.ReadFile(source)
	}
}

func render(w io.Writer, format string, view feed.DocumentView) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}
