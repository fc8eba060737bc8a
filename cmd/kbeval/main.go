// Package main is the kbeval CLI entry point.
package main

import (
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

	"github.com/hyperjump/kbeval/internal/cli"
	"github.com/hyperjump/kbeval/internal/config"
	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/eval"
	"github.com/hyperjump/kbeval/internal/expr"
	"github.com/hyperjump/kbeval/internal/keyword"
	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/ranking"
	"github.com/hyperjump/kbeval/internal/runner"
	"github.com/hyperjump/kbeval/internal/search"
	"github.com/hyperjump/kbeval/internal/server"
	"github.com/hyperjump/kbeval/internal/shell"
	"github.com/hyperjump/kbeval/internal/storage"
	"github.com/hyperjump/kbeval/internal/watcher"
	"github.com/hyperjump/kbeval/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kbeval/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory is preferred, and a missing default file yields the
// built-in defaults. Returns the config and the path actually loaded, empty
// when no file was read.
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// bootstrap loads the config and creates the logger, exiting on failure.
func bootstrap(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))
	return cfg, logger
}

// flagsFirst moves any flags (and their values) that appear after the
// positional arguments to the front, so "kbeval stats run1 run2 -split test"
// parses -split. The flag package stops at the first non-flag argument.
func flagsFirst(args []string) []string {
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

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "evaluate":
		runEvaluate()
	case "stats":
		runStats()
	case "comprole":
		runCompRole()
	case "shell":
		runShell()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "runs":
		runRuns()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kbeval version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// evaluateFlags override the evaluation section of the config.
type evaluateFlags struct {
	dataDir string
	split   string
	adjust  bool
	workers int
	noDump  bool
}

func (f evaluateFlags) apply(cfg *config.Config) {
	if f.dataDir != "" {
		cfg.Dataset.Dir = f.dataDir
	}
	if f.split != "" {
		cfg.Evaluation.Split = f.split
	}
	if f.adjust {
		cfg.Evaluation.Adjust = true
	}
	if f.workers > 0 {
		cfg.Evaluation.Workers = f.workers
	}
	if f.noDump {
		dump := false
		cfg.Evaluation.DumpRanking = &dump
	}
}

// modelDirs returns the positional model directories, or the configured one.
func modelDirs(args []string, cfg *config.Config) []string {
	if len(args) > 0 {
		return args
	}
	return []string{cfg.Model.Dir}
}

func runEvaluate() {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	var ef evaluateFlags
	fs.StringVar(&ef.dataDir, "data", "", "dataset directory (default from config)")
	fs.StringVar(&ef.split, "split", "", "split to rank: valid or test (default from config)")
	fs.BoolVar(&ef.adjust, "adjust", false, "skip triples with unknown entities instead of substituting")
	fs.IntVar(&ef.workers, "workers", 0, "parallel ranking workers (default from config)")
	fs.BoolVar(&ef.noDump, "no-dump", false, "do not write ranking detail next to the model")
	noStore := fs.Bool("no-store", false, "do not record the run in the database")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, logger := bootstrap(*configPath, *debug)
	defer logger.Sync()
	ef.apply(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []runner.RunnerOption{runner.WithLogger(logger)}
	if !*noStore {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Fatal("Failed to open run database", zap.Error(err))
		}
		defer store.Close()
		opts = append(opts, runner.WithStorage(store))
	}
	r, err := runner.Open(cfg, opts...)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	dirs := modelDirs(fs.Args(), cfg)
	failed := false
	for _, dir := range dirs {
		res, err := r.Evaluate(ctx, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Evaluation of %s failed: %v\n", dir, err)
			failed = true
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(dirs) > 1 && format == cli.OutputText {
			fmt.Printf("# %s\n", dir)
		}
		if err := cli.WriteMetrics(os.Stdout, res.Run.Metrics, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	split := fs.String("split", "", "split whose ranking detail is read (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	xlsxPath := fs.String("xlsx", "", "also export per-run metrics and the summary to this .xlsx file")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: kbeval stats [flags] <model_dir>...")
		fs.PrintDefaults()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *split == "" {
		*split = cfg.Evaluation.Split
	}

	summary, runs, err := summarizeDetails(fs.Args(), *split)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	if *xlsxPath != "" {
		if err := cli.ExportXLSX(*xlsxPath, fs.Args(), runs, summary); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Exported %d runs to %s\n", len(runs), *xlsxPath)
	}
	if err := cli.WriteSummary(os.Stdout, summary, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// summarizeDetails recomputes the metrics of each model's ranking detail
// for split and describes them.
func summarizeDetails(dirs []string, split string) (eval.Summary, []ranking.Metrics, error) {
	runs := make([]ranking.Metrics, 0, len(dirs))
	for _, dir := range dirs {
		m, err := eval.MetricsFromDetail(eval.DetailPath(dir, split))
		if err != nil {
			return eval.Summary{}, nil, err
		}
		runs = append(runs, m)
	}
	summary, err := eval.Describe(runs)
	if err != nil {
		return eval.Summary{}, nil, err
	}
	return summary, runs, nil
}

func runCompRole() {
	fs := flag.NewFlagSet("comprole", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	modelDir := fs.String("model", "", "model directory (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: kbeval comprole [flags] <compositions.tsv>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	cfg, logger := bootstrap(*configPath, *debug)
	defer logger.Sync()
	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}

	components, err := initializeComponents(context.Background(), cfg, logger, componentOptions{})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := writeCompositionRanks(os.Stdout, components.Engine, fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "comprole failed: %v\n", err)
		os.Exit(1)
	}
}

// writeCompositionRanks prints, for each line of path, the average rank of
// the target relation among all relations by similarity to the composed
// pair. Output lines correspond to input lines, so an unknown name is fatal.
func writeCompositionRanks(w io.Writer, engine *search.Engine, path string) error {
	for c, err := range search.ReadCompositions(path) {
		if err != nil {
			return err
		}
		rank, err := engine.CompRoleRank(c.First, c.Second, c.Target)
		if err != nil {
			return fmt.Errorf("%s * %s -> %s: %w", c.First, c.Second, c.Target, err)
		}
		if _, err := fmt.Fprintf(w, "%g\n", rank); err != nil {
			return err
		}
	}
	return nil
}

func runShell() {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	modelDir := fs.String("model", "", "model directory (default from config)")
	k := fs.Int("k", 0, "number of results per listing (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	cfg, logger := bootstrap(*configPath, *debug)
	defer logger.Sync()
	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}
	if *k > 0 {
		cfg.Shell.TopK = *k
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, componentOptions{nameIndex: true})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	sh := shell.New(components.Engine, os.Stdout, shell.Options{
		Prompt: cfg.Shell.Prompt,
		K:      cfg.Shell.TopK,
		Logger: logger,
	})
	if err := sh.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Shell failed: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	modelDir := fs.String("model", "", "model directory (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging (requests, checkpoint events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := bootstrap(*configPath, *debug)
	defer logger.Sync()
	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, componentOptions{storage: true, nameIndex: true})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if len(cfg.Watch.Directories) > 0 {
		ds, err := eval.LoadDataset(cfg.Dataset.Dir, !cfg.Evaluation.Adjust)
		if err != nil {
			logger.Warn("checkpoint watching disabled", zap.Error(err))
		} else {
			r := runner.NewRunner(components.Lexicon, ds, cfg.Evaluation,
				runner.WithStorage(components.Storage),
				runner.WithLogger(logger),
			)
			w := newCheckpointWatcher(ctx, cfg.Watch.Directories, cfg, r, logger)
			if err := w.Start(ctx); err != nil {
				logger.Fatal("Failed to start watcher", zap.Error(err))
			}
			defer w.Stop()
			w.SyncExisting()
		}
	}

	srv := server.NewServer(components.Engine, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// newCheckpointWatcher evaluates each model directory under dirs once its
// arrays settle.
func newCheckpointWatcher(ctx context.Context, dirs []string, cfg *config.Config, r *runner.Runner, logger *zap.Logger) *watcher.Watcher {
	return watcher.NewWatcher(
		dirs,
		func(dir string) { r.EvaluateCheckpoint(ctx, dir) },
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithRecursive(true),
		watcher.WithLogger(logger),
	)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	var ef evaluateFlags
	fs.StringVar(&ef.dataDir, "data", "", "dataset directory (default from config)")
	fs.StringVar(&ef.split, "split", "", "split to rank: valid or test (default from config)")
	fs.IntVar(&ef.workers, "workers", 0, "parallel ranking workers (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	cfg, logger := bootstrap(*configPath, *debug)
	defer logger.Sync()
	ef.apply(cfg)

	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = cfg.Watch.Directories
	}
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: kbeval watch [flags] <runs_dir>...  (or set watch.directories in config)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open run database", zap.Error(err))
	}
	defer store.Close()
	r, err := runner.Open(cfg, runner.WithStorage(store), runner.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	w := newCheckpointWatcher(ctx, dirs, cfg, r, logger)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	w.SyncExisting()
	logger.Info("Watching for checkpoints", zap.Strings("directories", w.Directories()))

	<-ctx.Done()
	logger.Info("Shutting down...")
}

func printRunsUsage() {
	fmt.Println(`Usage: kbeval runs <list|show|delete> [flags]

  kbeval runs list [--model dir] [--limit n] [--offset n] [--output text|json]
  kbeval runs show [--ranks] [--output text|json] <id>
  kbeval runs delete <id>`)
}

func runRuns() {
	if len(os.Args) < 3 {
		printRunsUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("runs "+sub, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	modelDir := fs.String("model", "", "only list runs of this model directory")
	limit := fs.Int("limit", 20, "number of runs to list")
	offset := fs.Int("offset", 0, "number of runs to skip")
	withRanks := fs.Bool("ranks", false, "include stored ranks")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[3:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open run database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	switch sub {
	case "list":
		filter := *modelDir
		if filter != "" {
			if abs, err := filepath.Abs(filter); err == nil {
				filter = abs
			}
		}
		runs, err := store.ListRuns(ctx, filter, *offset, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		err = cli.WriteRuns(os.Stdout, runs, format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "show":
		if fs.NArg() != 1 {
			printRunsUsage()
			os.Exit(1)
		}
		if err := showRun(ctx, os.Stdout, store, fs.Arg(0), *withRanks, format); err != nil {
			fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}
	case "delete":
		if fs.NArg() != 1 {
			printRunsUsage()
			os.Exit(1)
		}
		if err := store.DeleteRun(ctx, fs.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Run deleted: %s\n", fs.Arg(0))
	default:
		fmt.Printf("Unknown runs command: %s\n", sub)
		printRunsUsage()
		os.Exit(1)
	}
}

// showRun writes one stored run, followed by its ranks when withRanks is set.
func showRun(ctx context.Context, w io.Writer, store storage.Storage, id string, withRanks bool, format cli.OutputFormat) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	var ranks []models.RunRank
	if withRanks {
		if ranks, err = store.GetRunRanks(ctx, id); err != nil {
			return err
		}
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if !withRanks {
			return enc.Encode(run)
		}
		return enc.Encode(map[string]interface{}{"run": run, "ranks": ranks})
	}
	if err := cli.WriteRuns(w, []*models.Run{run}, format); err != nil {
		return err
	}
	if !withRanks {
		return nil
	}
	fmt.Fprintln(w)
	for _, rr := range ranks {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", rr.Position, rr.Direction, rr.Rank, rr.Triple)
	}
	return nil
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	ModelDir     string `json:"model_dir"`
	DatasetDir   string `json:"dataset_dir"`
	DatabasePath string `json:"database_path"`
	Split        string `json:"split"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Entities       int                   `json:"entities"`
	Relations      int                   `json:"relations"`
	Dimension      int                   `json:"dimension"`
	CodeSize       int                   `json:"code_size"`
	Runs           *int64                `json:"runs,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the model directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status *statusResponse
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger := bootstrap(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(context.Background(), cfg, logger, componentOptions{storage: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := writeStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	status := &statusResponse{
		Entities:  c.Lexicon.NumEntities(),
		Relations: c.Lexicon.NumRelations(),
		Dimension: c.Set.Dim(),
		CodeSize:  c.Set.CodeLen(),
		Config: &statusConfigResponse{
			ModelDir:     cfg.Model.Dir,
			DatasetDir:   cfg.Dataset.Dir,
			DatabasePath: cfg.Storage.DatabasePath,
			Split:        cfg.Evaluation.Split,
		},
	}
	if c.Storage != nil {
		runs, err := c.Storage.CountRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("count runs failed: %w", err)
		}
		status.Runs = &runs
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Model.Dir, cfg.Storage.DatabasePath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimSuffix(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &status, nil
}

func writeStatus(w io.Writer, status *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "entities:           %d   # entity vocabulary size\n", status.Entities)
	fmt.Fprintf(w, "relations:          %d   # directed relations\n", status.Relations)
	fmt.Fprintf(w, "dimension:          %d\n", status.Dimension)
	fmt.Fprintf(w, "code_size:          %d   # 0 when the model has no autoencoder\n", status.CodeSize)
	if status.Runs != nil {
		fmt.Fprintf(w, "runs:               %d   # stored evaluation runs\n", *status.Runs)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # model arrays + run database\n", *status.DiskUsageBytes)
	}
	if status.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "model_dir:          %s\n", status.Config.ModelDir)
		fmt.Fprintf(w, "dataset_dir:        %s\n", status.Config.DatasetDir)
		fmt.Fprintf(w, "split:              %s\n", status.Config.Split)
		if status.Config.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
		}
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Lexicon   *lexicon.Lexicon
	Set       *embedding.EmbeddingSet
	Engine    *search.Engine
	Storage   storage.Storage
	NameIndex keyword.NameIndex
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.NameIndex != nil {
		_ = c.NameIndex.Close()
	}
}

// componentOptions select the optional services initializeComponents opens.
type componentOptions struct {
	// storage opens the run database.
	storage bool
	// nameIndex builds an in-memory name index so suggestions also match
	// words inside names, not only whole-name edit distance.
	nameIndex bool
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts componentOptions) (*Components, error) {
	c := &Components{}
	lex, err := lexicon.Load(cfg.Dataset.EntityVocabPath(), cfg.Dataset.RelationVocabPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	c.Lexicon = lex

	set, err := embedding.Load(cfg.Model.Dir, lex, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	c.Set = set
	logger.Info("model loaded",
		zap.String("model_dir", cfg.Model.Dir),
		zap.Int("entities", lex.NumEntities()),
		zap.Int("relations", lex.NumRelations()),
		zap.Int("dim", set.Dim()),
	)

	if opts.storage {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Storage = store
	}

	var index keyword.NameIndex
	if opts.nameIndex {
		bleveIndex, err := keyword.NewBleveIndex("")
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize name index: %w", err)
		}
		index = bleveIndex
		c.NameIndex = bleveIndex
	}
	suggester, err := keyword.NewSuggester(ctx, lex, index, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize suggestions: %w", err)
	}

	c.Engine = search.NewEngine(set, expr.NewEvaluator(set, expr.DefaultCacheSize, logger), suggester, cfg.Shell.TopK)
	return c, nil
}

func printUsage() {
	fmt.Println(`kbeval - Knowledge base embedding evaluator

Usage:
  kbeval evaluate [flags] [model_dir...]   Rank a split and report MR, MRR and Hits@N
  kbeval stats [flags] <model_dir>...      Mean and std of metrics across stored rankings
  kbeval comprole [flags] <file>           Rank relation compositions (r1, r2 -> r)
  kbeval shell [flags]                     Interactive model exploration
  kbeval server [flags]                    Start the HTTP server
  kbeval watch [flags] [runs_dir...]       Evaluate checkpoints as training writes them
  kbeval runs <list|show|delete>           Manage stored evaluation runs
  kbeval status [flags]                    Show model/storage status
  kbeval version                           Show version
  kbeval help                              Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kbeval/config.yaml)
  --debug            Enable debug logging

Evaluate Flags:
  --data string      Dataset directory (default from config)
  --split string     valid or test (default from config)
  --adjust           Skip triples with unknown entities instead of substituting
  --workers int      Parallel ranking workers
  --no-dump          Do not write ranking_detail_<split>.json next to the model
  --no-store         Do not record the run in the database
  --output string    Output format: text or json (default: text)

Stats Flags:
  --split string     Split whose ranking detail is read
  --xlsx string      Also export the runs and summary to a spreadsheet
  --output string    Output format: text or json (default: text)

Shell Flags:
  --model string     Model directory (default from config)
  --k int            Results per listing (default: 20)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to load the model directly.
  --output string    Output format: text or json (default: text)

Examples:
  kbeval evaluate --split test ./model
  kbeval stats --split test runs/seed1 runs/seed2 runs/seed3
  kbeval stats --xlsx results.xlsx runs/*
  kbeval comprole --model ./model compositions.tsv
  kbeval shell --model ./model
  kbeval watch ./runs
  kbeval runs list --model ./model
  kbeval status --output json`)
}
