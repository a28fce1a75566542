// Package main is the Tsunagu CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/discovery"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/provider"
	"github.com/hyperjump/tsunagu/internal/server"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tsunagu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. When neither exists, configuration comes from the environment
// and defaults alone.
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
		if _, statErr := os.Stat(path); statErr != nil {
			return config.FromEnv(), "(env)", nil
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
	case "search":
		runSearch()
	case "indexes":
		runIndexes()
	case "status":
		runStatus()
	case "migrate":
		runMigrate()
	case "ingest":
		runIngest()
	case "version", "--version", "-v":
		fmt.Printf("tsunagu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger and provider shared by all
// subcommands.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *provider.Provider) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Strings("roots", cfg.Retrieval.Roots),
		zap.Bool("remote_enabled", cfg.Remote.Enabled))
	return cfg, logger, provider.FromConfig(cfg, logger)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, p := setup(*configPath, *debug)
	defer logger.Sync()
	defer p.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Retrieval.Watch && len(cfg.Retrieval.Roots) > 0 {
		w := discovery.NewWatcher(p.Discovery(), cfg.Retrieval.Roots, logger)
		if err := w.Start(watchCtx); err != nil {
			logger.Warn("index watcher failed to start", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := server.NewServer(p, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	index := fs.String("index", "", "index or collection name (required)")
	topK := fs.Int("top-k", 0, "number of results (0 = configured default)")
	asJSON := fs.Bool("json", false, "print results as JSON")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tsunagu search -index <name> [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" || *index == "" {
		fs.Usage()
		os.Exit(1)
	}

	_, logger, p := setup(*configPath, *debug)
	defer logger.Sync()
	defer p.Close()

	results := p.Search(context.Background(), query, *index, *topK)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
		return
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		if lastErr := p.LastError(); lastErr != "" {
			fmt.Printf("Last error: %s\n", lastErr)
		}
		return
	}
	for i, res := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, res.Score, utils.Truncate(res.Content, 120))
		if res.Source != "" {
			fmt.Printf("   source: %s", res.Source)
			if res.Page != nil {
				fmt.Printf(" (page %v)", res.Page)
			}
			fmt.Println()
		}
	}
}

func runIndexes() {
	fs := flag.NewFlagSet("indexes", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	refresh := fs.Bool("refresh", false, "bypass the discovery cache")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	_, logger, p := setup(*configPath, *debug)
	defer logger.Sync()
	defer p.Close()

	names := p.ListIndexes(context.Background(), *refresh)
	if len(names) == 0 {
		fmt.Println("No indexes found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	_, logger, p := setup(*configPath, *debug)
	defer logger.Sync()
	defer p.Close()

	state, message := p.Status(context.Background())
	fmt.Printf("State:   %s\n", state)
	fmt.Printf("Message: %s\n", message)
	if lastErr := p.LastError(); lastErr != "" {
		fmt.Printf("Last error: %s\n", lastErr)
	}
}

func runMigrate() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	index := fs.String("index", "", "local index name to migrate (required)")
	collection := fs.String("collection", "", "target remote collection (required)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if *index == "" || *collection == "" {
		fmt.Println("Usage: tsunagu migrate -index <name> -collection <name>")
		os.Exit(1)
	}

	_, logger, p := setup(*configPath, *debug)
	defer logger.Sync()
	defer p.Close()

	report := p.Migrate(context.Background(), *index, *collection)
	fmt.Printf("Success:   %v\n", report.Success)
	fmt.Printf("Migrated:  %d/%d (%.1f%%)\n",
		report.MigratedDocuments, report.TotalDocuments, report.MigrationRate*100)
	if report.Reason != "" {
		fmt.Printf("Reason:    %s\n", report.Reason)
	}
	for _, warning := range report.Warnings {
		fmt.Printf("Warning:   %s\n", warning)
	}
	if !report.Success {
		os.Exit(1)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	collection := fs.String("collection", "", "target remote collection (required)")
	file := fs.String("file", "-", "JSON file with documents ('-' for stdin)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tsunagu ingest -collection <name> [-file docs.json]\n\n")
		fmt.Fprintf(fs.Output(), "Input is a JSON array of {id, content, metadata} objects.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	if *collection == "" {
		fs.Usage()
		os.Exit(1)
	}

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Printf("Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	var docs []models.DocumentRecord
	if err := json.NewDecoder(in).Decode(&docs); err != nil {
		fmt.Printf("Failed to parse documents: %v\n", err)
		os.Exit(1)
	}

	_, logger, p := setup(*configPath, *debug)
	defer logger.Sync()
	defer p.Close()

	if !p.Ingest(context.Background(), docs, *collection) {
		fmt.Printf("Ingest failed: %s\n", p.LastError())
		os.Exit(1)
	}
	fmt.Printf("Ingested %d documents into %q.\n", len(docs), *collection)
}

func printUsage() {
	fmt.Println(`Usage: tsunagu <command> [flags]

Commands:
  server    Run the HTTP API server
  search    Query an index or remote collection
  indexes   List discovered indexes and collections
  status    Show provider health
  migrate   Copy a local index into a remote collection
  ingest    Upsert documents into a remote collection
  version   Print the version

Run 'tsunagu <command> -h' for command flags.`)
}
