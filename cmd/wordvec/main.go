// Package main is the wordvec CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/wordvec/internal/cli"
	"github.com/hyperjump/wordvec/internal/config"
	"github.com/hyperjump/wordvec/internal/ingest"
	"github.com/hyperjump/wordvec/internal/model"
	"github.com/hyperjump/wordvec/internal/server"
	"github.com/hyperjump/wordvec/internal/watcher"
	"github.com/hyperjump/wordvec/pkg/utils"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/wordvec/config.yaml"
	defaultServerURL  = "http://localhost:3000"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "similar":
		runSimilar()
	case "vector":
		runVector()
	case "suggest":
		runSuggest()
	case "status":
		runStatus()
	case "convert":
		runConvert()
	case "version", "--version", "-v":
		fmt.Printf("wordvec version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// serverOverrides are server flags that replace config file values when set.
type serverOverrides struct {
	vectors    string
	compressed bool
	limit      int
	port       int
	debug      bool
	set        map[string]bool
}

// applyServerOverrides copies explicitly set flags into cfg.
func applyServerOverrides(cfg *config.Config, o serverOverrides) {
	if o.set["vectors"] {
		cfg.Vectors.Path = o.vectors
	}
	if o.set["compressed"] {
		cfg.Vectors.Compressed = o.compressed
	}
	if o.set["limit"] {
		cfg.Vectors.Limit = o.limit
	}
	if o.set["port"] {
		cfg.Server.Port = o.port
	}
	if o.debug {
		cfg.Debug = true
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	var o serverOverrides
	fs.StringVar(&o.vectors, "vectors", "", "embedding file path (overrides vectors.path)")
	fs.BoolVar(&o.compressed, "compressed", false, "embedding file is gzip-compressed")
	fs.IntVar(&o.limit, "limit", 0, "maximum number of embeddings to load; negative loads all")
	fs.IntVar(&o.port, "port", 0, "listen port (overrides server.port)")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		if !o.set["vectors"] {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		resolvedConfigPath = ""
	}
	applyServerOverrides(cfg, o)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
	)

	m, err := model.Load(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load model", zap.Error(err))
	}
	defer m.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.EnabledOrDefault() {
		watchSvc := watcher.NewWatcher([]string{cfg.Vectors.Path}, func(path string) {
			m.MarkStale()
			logger.Warn("embedding file changed; restart to load it", zap.String("path", path))
		}, watcher.WithLogger(logger))
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Warn("file watcher disabled", zap.Error(err))
		} else {
			defer watchSvc.Stop()
		}
	}

	srv := server.NewServer(m, &cfg.Server, &cfg.Suggest, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// wordFromArgs joins positional args with spaces, so phrase tokens work with or without quoting.
func wordFromArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// clientFlags registers the flags shared by the HTTP client subcommands.
func clientFlags(fs *flag.FlagSet) (serverURL, output *string) {
	serverURL = fs.String("server", defaultServerURL, "server URL")
	output = fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	return serverURL, output
}

// parseClientArgs parses a client subcommand and returns its word and output format.
func parseClientArgs(fs *flag.FlagSet, output *string, usage string) (string, cli.OutputFormat) {
	_ = fs.Parse(argsReorder(os.Args[2:]))
	word := wordFromArgs(fs.Args())
	if word == "" {
		fmt.Println(usage)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return word, format
}

func exitOnError(action string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, err)
		os.Exit(1)
	}
}

func runSimilar() {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	count := fs.Int("count", 0, "number of results (default: server default, max 512)")
	word, format := parseClientArgs(fs, output, "Usage: wordvec similar [flags] <word>")

	resp, err := cli.NewClient(*serverURL).Similar(context.Background(), word, *count)
	exitOnError("Similar", err)
	exitOnError("Output", cli.WriteSimilar(os.Stdout, resp, format))
}

func runVector() {
	fs := flag.NewFlagSet("vector", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	word, format := parseClientArgs(fs, output, "Usage: wordvec vector [flags] <word>")

	resp, err := cli.NewClient(*serverURL).Vector(context.Background(), word)
	exitOnError("Vector", err)
	exitOnError("Output", cli.WriteVector(os.Stdout, resp, format))
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	count := fs.Int("count", 0, "number of suggestions (default: server default)")
	word, format := parseClientArgs(fs, output, "Usage: wordvec suggest [flags] <word>")

	resp, err := cli.NewClient(*serverURL).Suggest(context.Background(), word, *count)
	exitOnError("Suggest", err)
	exitOnError("Output", cli.WriteSuggestions(os.Stdout, resp, format))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format, err := cli.ParseOutputFormat(*output)
	exitOnError("Status", err)

	status, err := cli.NewClient(*serverURL).Status(context.Background())
	exitOnError("Status", err)
	exitOnError("Output", cli.WriteStatus(os.Stdout, status, format))
}

// convertOptions describes a convert invocation.
type convertOptions struct {
	in            string
	inFormat      string
	compressed    bool
	limit         int
	out           string
	outFormat     string
	outCompressed bool
}

func runConvert() {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var o convertOptions
	fs.StringVar(&o.in, "in", "", "input embedding file")
	fs.StringVar(&o.inFormat, "in-format", "auto", "input format: auto, binary, text, sqlite")
	fs.BoolVar(&o.compressed, "compressed", false, "input is gzip-compressed")
	fs.IntVar(&o.limit, "limit", 0, "maximum number of records to convert (0 = all)")
	fs.StringVar(&o.out, "out", "", "output file")
	fs.StringVar(&o.outFormat, "out-format", "binary", "output format: binary, text, sqlite")
	fs.BoolVar(&o.outCompressed, "out-compressed", false, "gzip the output (binary and text only)")
	_ = fs.Parse(os.Args[2:])
	if o.in == "" || o.out == "" {
		fmt.Println("Usage: wordvec convert --in <path> --out <path> [--out-format binary|text|sqlite]")
		os.Exit(1)
	}

	n, err := convert(context.Background(), o)
	exitOnError("Convert", err)
	fmt.Printf("Converted %d embeddings to %s\n", n, o.out)
}

// countingSource counts records read through it.
type countingSource struct {
	ingest.Source
	n int
}

func (c *countingSource) Read() (*ingest.Record, error) {
	rec, err := c.Source.Read()
	if err == nil {
		c.n++
	}
	return rec, err
}

// convert copies embeddings between formats and returns the number written.
func convert(ctx context.Context, o convertOptions) (int, error) {
	inFormat, err := ingest.ParseFormat(o.inFormat)
	if err != nil {
		return 0, err
	}
	outFormat, err := ingest.ParseFormat(o.outFormat)
	if err != nil {
		return 0, err
	}
	if outFormat == ingest.FormatAuto {
		outFormat, _ = ingest.DetectFormat(o.out)
	}

	src, err := ingest.Open(ctx, o.in, ingest.Options{Format: inFormat, Compressed: o.compressed})
	if err != nil {
		return 0, err
	}
	defer src.Close()
	counted := &countingSource{Source: ingest.Limit(src, o.limit)}

	if outFormat == ingest.FormatSQLite {
		if o.outCompressed {
			return 0, errors.New("compressed sqlite output is not supported")
		}
		if err := ingest.WriteSQLite(ctx, o.out, counted); err != nil {
			return 0, err
		}
		return counted.n, nil
	}

	f, err := os.Create(o.out)
	if err != nil {
		return 0, err
	}
	var w io.Writer = f
	var zw *gzip.Writer
	if o.outCompressed {
		zw = gzip.NewWriter(f)
		w = zw
	}
	if outFormat == ingest.FormatText {
		err = ingest.WriteText(w, counted)
	} else {
		err = ingest.WriteBinary(w, counted)
	}
	if zw != nil {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return counted.n, nil
}

func printUsage() {
	fmt.Println(`wordvec - Word embedding nearest-neighbor server

Usage:
  wordvec server [flags]            Load embeddings and start the HTTP server
  wordvec similar [flags] <word>    Show the words nearest to a word
  wordvec vector [flags] <word>     Show the stored vector of a word
  wordvec suggest [flags] <word>    Suggest vocabulary words spelled like <word>
  wordvec status [flags]            Show model and index status
  wordvec convert [flags]           Convert embeddings between formats
  wordvec version                   Show version
  wordvec help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/wordvec/config.yaml)
  --vectors string   Embedding file path (overrides vectors.path)
  --compressed       Embedding file is gzip-compressed
  --limit int        Maximum number of embeddings to load (negative = all)
  --port int         Listen port (overrides server.port)
  --debug            Enable debug logging

Client Flags (similar, vector, suggest, status):
  --server string    Server URL (default: http://localhost:3000)
  --output string    Output format: text, compact, or json (default: text)
  --count int        Number of results (similar, suggest)

Convert Flags:
  --in string          Input embedding file
  --in-format string   auto, binary, text, or sqlite (default: auto)
  --compressed         Input is gzip-compressed
  --limit int          Maximum number of records to convert
  --out string         Output file
  --out-format string  binary, text, or sqlite (default: binary)
  --out-compressed     Gzip the output

Examples:
  wordvec server --vectors GoogleNews-vectors-negative300.bin.gz --compressed --limit 250000
  wordvec similar --count 10 king
  wordvec similar king --output json
  wordvec vector Paris
  wordvec suggest kng
  wordvec status --output json
  wordvec convert --in vectors.bin --out vectors.db --out-format sqlite`)
}
