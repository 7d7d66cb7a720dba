// Package main is the kaimono CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kaimono/internal/cli"
	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/importer"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/recommend"
	"github.com/hyperjump/kaimono/internal/server"
	"github.com/hyperjump/kaimono/internal/storage"
	"github.com/hyperjump/kaimono/internal/watcher"
	"github.com/hyperjump/kaimono/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kaimono/config.yaml"
	defaultServerURL  = "http://localhost:8000"
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
	case "recommend":
		runRecommend()
	case "import":
		runImport()
	case "train":
		runTrain()
	case "status":
		runStatus()
	case "init-config":
		runInitConfig()
	case "version", "--version", "-v":
		fmt.Printf("kaimono version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (catalog imports, retrains, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("index_type", cfg.Index.Type),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := recommend.NewScheduler(components.Engine, cfg.Recommend.RetrainInterval, cfg.Catalog.RetrainDebounce, logger)
	go scheduler.Run(ctx)

	var watchSvc *watcher.Watcher
	if len(cfg.Catalog.ImportDirectories) > 0 {
		loader := importer.NewLoader(components.Storage, scheduler.Trigger, logger)
		watchSvc = watcher.New(
			cfg.Catalog.ImportDirectories,
			cfg.Catalog.Extensions,
			cfg.Catalog.RecursiveOrDefault(),
			loader,
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		watchSvc.SyncExisting(ctx)
	}

	if cfg.Recommend.TrainOnStartupOrDefault() {
		if _, err := components.Engine.Train(ctx); err != nil {
			logger.Warn("startup training failed; recommendations unavailable until the catalog is trainable",
				zap.Error(err))
		}
	}

	opts := []server.Option{server.WithRetrainTrigger(scheduler)}
	if watchSvc != nil {
		opts = append(opts, server.WithWatchService(watchSvc))
	}
	srv := server.NewServer(components.Engine, components.Storage, cfg, logger, opts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// reorderArgs moves flags that follow positional arguments to the front so
// "kaimono recommend A B --limit 3" parses the same as "kaimono recommend --limit 3 A B".
func reorderArgs(args []string) []string {
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

// cartFromArgs splits positional arguments on commas and whitespace into product IDs.
func cartFromArgs(args []string) []string {
	ids := []string{}
	for _, a := range args {
		ids = append(ids, strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })...)
	}
	return ids
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kaimono recommend [flags] <product-id>...\n\n")
	fmt.Fprintf(fs.Output(), "Product IDs may be separated by spaces or commas.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kaimono recommend 65f1c0ffee 65f1c0ffef
  kaimono recommend --limit 3 65f1c0ffee,65f1c0ffef
  kaimono recommend --server "" --output json 65f1c0ffee   # no server; train in-process
`)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = train and answer in-process)")
	limit := fs.Int("limit", 0, "number of recommendations (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	cart := cartFromArgs(fs.Args())
	if len(cart) == 0 {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := &models.CartRequest{ProductIDs: cart, Limit: *limit}

	var data *models.RecommendationData
	if *serverURL != "" {
		data, err = recommendViaHTTP(*serverURL, req)
	} else {
		data, err = recommendDirect(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, data, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func recommendDirect(configPath string, req *models.CartRequest) (*models.RecommendationData, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Engine.RecommendCart(context.Background(), req)
}

func recommendViaHTTP(serverURL string, req *models.CartRequest) (*models.RecommendationData, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/recommendations/cart", "application/json", bytes.NewReader(body))
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
	if response.Data == nil {
		return nil, fmt.Errorf("server returned no data")
	}
	return response.Data, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	train := fs.Bool("train", false, "train a model after importing to validate the catalog")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kaimono import [flags] <file-or-directory>...")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	loader := importer.NewLoader(components.Storage, nil, logger)
	var files, products int
	for _, path := range fs.Args() {
		f, p, err := importPath(ctx, loader, path, cfg.Catalog.Extensions)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
		files += f
		products += p
	}
	fmt.Printf("Imported %d product(s) from %d file(s)\n", products, files)

	if *train {
		if _, err := components.Engine.Train(ctx); err != nil {
			fmt.Printf("Training failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteStatus(os.Stdout, components.Engine.Status(), cli.OutputText)
	}
}

// importPath loads a single catalog file, or every matching file under a directory.
// Paths are made absolute so a later watcher event for the same file replaces this import.
func importPath(ctx context.Context, loader *importer.Loader, path string, extensions []string) (files, products int, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, 0, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		res, err := loader.LoadFile(ctx, abs)
		if err != nil {
			return 0, 0, err
		}
		return 1, len(res.Products), nil
	}

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !hasExtension(p, extensions) || !importer.Supported(p) {
			return nil
		}
		res, err := loader.LoadFile(ctx, p)
		if err != nil {
			return err
		}
		files++
		products += len(res.Products)
		return nil
	})
	return files, products, err
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "", "server URL; when set, asks the running server to retrain")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var st recommend.Status
	if *serverURL != "" {
		st, err = retrainViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrain failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug, cfg.LogLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		if _, err := components.Engine.Train(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
			os.Exit(1)
		}
		st = components.Engine.Status()
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func retrainViaHTTP(serverURL string) (recommend.Status, error) {
	var st recommend.Status
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/retrain", "application/json", nil)
	if err != nil {
		return st, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return st, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode response: %w", err)
	}
	return st, nil
}

type statusResponse struct {
	Engine         recommend.Status `json:"engine"`
	Catalog        catalogCounts    `json:"catalog"`
	DiskUsageBytes *int64           `json:"disk_usage_bytes,omitempty"`
}

type catalogCounts struct {
	Products int64 `json:"products"`
	Active   int64 `json:"active"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the catalog store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.Open(cfg.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		ctx := context.Background()
		if status.Catalog.Products, err = store.CountProducts(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count products failed: %v\n", err)
			os.Exit(1)
		}
		if status.Catalog.Active, err = store.CountActiveProducts(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count active products failed: %v\n", err)
			os.Exit(1)
		}
		status.Engine = recommend.Status{State: recommend.StateUninitialized.String(), IndexType: cfg.Index.Type}
		if cfg.Storage.Driver == "sqlite" {
			if diskBytes, err := storage.SQLiteDiskUsage(cfg.Storage.DatabasePath); err == nil {
				status.DiskUsageBytes = &diskBytes
			}
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, &status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	_ = cli.WriteStatus(w, status.Engine, cli.OutputText)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# catalog")
	fmt.Fprintf(w, "Stored:      %d\n", status.Catalog.Products)
	fmt.Fprintf(w, "Active:      %d\n", status.Catalog.Active)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:  %s\n", cli.FormatBytes(*status.DiskUsageBytes))
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runInitConfig() {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	path := "config.yaml"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := writeDefaultConfig(path, *force); err != nil {
		fmt.Printf("init-config failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}

func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := config.Default()
	cfg.Storage.DatabasePath = "./data/catalog.db"
	cfg.Catalog.ImportDirectories = []string{"./catalog"}
	return config.Save(path, cfg)
}

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Engine  *recommend.Engine
}

// Close releases the engine and the store.
func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	engine := recommend.NewEngine(store, cfg, recommend.WithLogger(logger))
	return &Components{Storage: store, Engine: engine}, nil
}

func printUsage() {
	fmt.Println(`kaimono - cart-based product recommendations

Usage:
  kaimono server [flags]                  Start the HTTP server
  kaimono recommend [flags] <id>...       Recommend products for a cart
  kaimono import [flags] <path>...        Import catalog files (json, yaml, csv, xlsx)
  kaimono train [flags]                   Train a model and print its status
  kaimono status [flags]                  Show engine and catalog status
  kaimono init-config [path]              Write a default config file
  kaimono version                         Show version
  kaimono help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kaimono/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8000). Use --server "" to train in-process.
  --limit int        Number of recommendations (default from config: 8, max 50)
  --output string    Output format: text, compact, or json (default: text)

Import Flags:
  --config string    Config file path
  --train            Train after importing

Train Flags:
  --config string    Config file path (direct mode)
  --server string    Ask a running server to retrain instead
  --output string    Output format: text or json

Status Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8000). Use --server "" to read the store directly.
  --output string    Output format: text or json (default: text)

Examples:
  kaimono init-config
  kaimono import ./catalog/products.json
  kaimono server
  kaimono recommend 65f1c0ffee 65f1c0ffef
  kaimono recommend --limit 3 --output json 65f1c0ffee
  kaimono train --server http://localhost:8000
  kaimono status --output json`)
}
