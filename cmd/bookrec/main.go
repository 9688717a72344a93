// Package main is the bookrec CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/bookrec/internal/catalog"
	"github.com/hyperjump/bookrec/internal/cli"
	"github.com/hyperjump/bookrec/internal/config"
	"github.com/hyperjump/bookrec/internal/ingest"
	"github.com/hyperjump/bookrec/internal/loader"
	"github.com/hyperjump/bookrec/internal/metrics"
	"github.com/hyperjump/bookrec/internal/models"
	"github.com/hyperjump/bookrec/internal/recommend"
	"github.com/hyperjump/bookrec/internal/server"
	"github.com/hyperjump/bookrec/internal/trainer"
	"github.com/hyperjump/bookrec/internal/watcher"
	"github.com/hyperjump/bookrec/pkg/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/bookrec/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and config.yaml exists in the
// current directory, that file is used instead so "bookrec server" works from a project dir.
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
	case "train":
		runTrain()
	case "recommend":
		runRecommend()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("bookrec version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func modelSource(cfg *config.Config) loader.Source {
	return loader.Source{
		Path:    cfg.Model.Path,
		URL:     cfg.Model.URL,
		Timeout: time.Duration(cfg.Model.FetchTimeoutSec) * time.Second,
	}
}

func newLogger(cfg *config.Config, debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// openCatalog opens the catalog database, or returns nil when none is configured.
func openCatalog(path string) (catalog.Store, error) {
	if path == "" {
		return nil, nil
	}
	store, err := catalog.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return store, nil
}

// closeAll closes every non-nil closer and combines their errors.
func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, reloads, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger := newLogger(cfg, debugMode)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := openCatalog(cfg.Catalog.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize catalog", zap.Error(err))
	}

	src := modelSource(cfg)
	holder := loader.NewHolder(src,
		loader.WithLogger(logger),
		loader.OnLoad(metrics.ObserveModelLoad),
	)
	if err := holder.Reload(context.Background()); err != nil {
		logger.Fatal("Failed to load model", zap.String("source", src.String()), zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Model.URL == "" && cfg.Model.WatchOrDefault() {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.Model.Path, func(string) {
			_ = holder.Reload(watchCtx)
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start model watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(holder, store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	err = multierr.Append(srv.Stop(ctx), closeAll(store))
	if err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func printTrainUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: bookrec train [flags] <catalog-file>\n\n")
	fmt.Fprintf(fs.Output(), "Catalog formats: %s\n\n", strings.Join(ingest.Extensions, ", "))
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  bookrec train books.csv
  bookrec train --output ./model.bvsm books.xlsx
  bookrec train --from-catalog            # retrain from the catalog database
`)
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "", "artifact path (default: model.path from config)")
	catalogDB := fs.String("catalog-db", "", "catalog database to refresh (default: catalog.database_path from config; \"none\" to skip)")
	fromCatalog := fs.Bool("from-catalog", false, "retrain from the books already in the catalog database")
	fs.Usage = func() { printTrainUsage(fs) }
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))

	if fs.NArg() < 1 && !*fromCatalog {
		printTrainUsage(fs)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, cfg.Debug)
	defer logger.Sync()

	artifactPath := *output
	if artifactPath == "" {
		artifactPath = cfg.Model.Path
	}
	dbPath := cfg.Catalog.DatabasePath
	switch *catalogDB {
	case "":
	case "none":
		dbPath = ""
	default:
		dbPath = *catalogDB
	}
	store, err := openCatalog(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	opts := []trainer.TrainerOption{trainer.WithLogger(logger)}
	if store != nil {
		defer store.Close()
		opts = append(opts, trainer.WithStore(store))
	}
	t := trainer.NewTrainer(opts...)

	ctx := context.Background()
	var res *trainer.Result
	if *fromCatalog {
		res, err = t.TrainCatalog(ctx, artifactPath)
	} else {
		res, err = t.TrainFile(ctx, fs.Arg(0), artifactPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Trained %d books (%d terms) in %s\n", res.Books, res.Terms, res.Duration.Round(time.Millisecond))
	fmt.Printf("Model written to %s\n", res.ArtifactPath)
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: bookrec recommend [flags] <module> [module...]\n\n")
	fmt.Fprintf(fs.Output(), "Each positional argument is one learning module; quote multi-word modules.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  bookrec recommend --domain "Data Science" "Machine Learning" "Deep Learning"
  bookrec recommend --limit 3 --output compact python statistics
  bookrec recommend --server "" --domain cooking recipes    # rank against the local artifact
`)
}

// argsReorder moves every flag (and its value) ahead of the positional arguments so
// flag.Parse() sees them all. Go's flag package stops at the first non-flag argument, so
// "bookrec recommend ml --limit 3 stats" would otherwise leave --limit unparsed. fs decides
// which flags take a separate value; positionals keep their order and "--" ends flag scanning.
func argsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := fs.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if len(positionals) == 0 {
		return flags
	}
	return append(append(flags, "--"), positionals...)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = rank against the local model artifact)")
	domain := fs.String("domain", "", "subject domain of the query")
	limit := fs.Int("limit", 0, "number of recommendations (default: recommend.default_limit from config)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one per line), or json (parseable)")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))

	if fs.NArg() < 1 {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := recommendRequest{Domain: *domain, Modules: fs.Args(), Limit: *limit}
	if req.Limit == 0 {
		req.Limit = defaultLimit(*configPath)
	}

	var response *models.RecommendationResponse
	if *serverURL != "" {
		response, err = recommendViaHTTP(*serverURL, req)
	} else {
		response, err = recommendLocal(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// recommendRequest is the POST /api/v1/recommendations body.
type recommendRequest struct {
	Domain  string   `json:"domain"`
	Modules []string `json:"modules"`
	Limit   int      `json:"limit"`
}

// defaultLimit is recommend.default_limit from the config at configPath, or the built-in
// default when that config cannot be loaded.
func defaultLimit(configPath string) int {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	return cfg.Recommend.DefaultLimit
}

func recommendViaHTTP(serverURL string, req recommendRequest) (*models.RecommendationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/recommendations", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.RecommendationResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func recommendLocal(configPath string, req recommendRequest) (*models.RecommendationResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	m, err := loader.Load(ctx, modelSource(cfg))
	if err != nil {
		return nil, err
	}
	query := &models.RecommendationQuery{
		Domain:  req.Domain,
		Modules: req.Modules,
		Limit:   req.Limit,
	}
	ranker := recommend.NewRanker(loader.NewStaticHolder(m), recommend.WithMaxLimit(cfg.Recommend.MaxLimit))
	return ranker.Recommend(ctx, query)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect local files)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil || format == cli.OutputCompact {
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	var status map[string]interface{}
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		status, err = statusLocal(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var s map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return s, nil
}

// statusLocal builds the same shape as GET /api/v1/status from local files.
func statusLocal(configPath string) (map[string]interface{}, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	status := map[string]interface{}{}

	modelInfo := map[string]interface{}{"loaded": false}
	src := modelSource(cfg)
	if m, loadErr := loader.Load(ctx, src); loadErr == nil {
		modelInfo["loaded"] = true
		modelInfo["items"] = m.Size()
		modelInfo["vocabulary_size"] = m.VocabularySize()
		modelInfo["source"] = src.String()
		modelInfo["loaded_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	status["model"] = modelInfo

	if cfg.Catalog.DatabasePath != "" {
		if _, statErr := os.Stat(cfg.Catalog.DatabasePath); statErr == nil {
			store, err := catalog.NewSQLiteStore(cfg.Catalog.DatabasePath)
			if err != nil {
				return nil, err
			}
			defer store.Close()
			count, err := store.CountBooks(ctx)
			if err != nil {
				return nil, fmt.Errorf("count books: %w", err)
			}
			status["catalog_books"] = count
		}
	}
	if diskBytes, err := catalog.DiskUsageBytes(cfg.Model.Path, cfg.Catalog.DatabasePath); err == nil {
		status["disk_usage_bytes"] = diskBytes
	}
	return status, nil
}

func printUsage() {
	fmt.Println(`bookrec - TF-IDF book recommendations for learning modules

Usage:
  bookrec server [flags]                  Start the HTTP server
  bookrec train [flags] <catalog-file>    Build a model artifact from a book catalog
  bookrec recommend [flags] <modules...>  Recommend books for a domain and modules
  bookrec status [flags]                  Show model, catalog, and disk status
  bookrec version                         Show version
  bookrec help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/bookrec/config.yaml)
  --debug            Enable debug logging

Train Flags:
  --config string      Config file path
  --output string      Artifact path (default: model.path from config)
  --catalog-db string  Catalog database to refresh ("none" to skip)
  --from-catalog       Retrain from the catalog database

Recommend Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to rank locally.
  --domain string    Subject domain
  --limit int        Number of recommendations (default from config)
  --output string    Output format: text, compact, or json (default: text)

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for local files.
  --output string    Output format: text or json (default: text)

Examples:
  bookrec train books.csv
  bookrec server
  bookrec recommend --domain "Data Science" "Machine Learning" "Python"
  bookrec recommend --output json --limit 3 statistics
  bookrec status --output json`)
}
