package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	serveradapter "github.com/soltrom/flytt/internal/adapters/server"
	"github.com/soltrom/flytt/internal/adapters/storage/sqlite"
	"github.com/soltrom/flytt/internal/app"
	"github.com/soltrom/flytt/internal/config"
	"github.com/soltrom/flytt/internal/mover"
	"github.com/soltrom/flytt/internal/platform"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/tui"
)

var version = "dev"

// program abstracts the bubbletea program loop for tests.
type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run resolves configuration and dispatches to the board TUI, the serve
// flow, or the paths inspection command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("flytt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		appName    string
		remoteURL  string
		boardID    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("FLYTT_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("FLYTT_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "flytt"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.StringVar(&remoteURL, "remote", "", "base URL of a remote board server (overrides config)")
	fs.StringVar(&boardID, "board", "", "board id on the remote server (overrides config)")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "flytt %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "serve":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("FLYTT_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("FLYTT_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if remote := strings.TrimSpace(remoteURL); remote != "" {
		cfg.Remote.BaseURL = remote
	}
	if board := strings.TrimSpace(boardID); board != "" {
		cfg.Remote.BoardID = board
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, closeLogger, err := newRuntimeLogger(stderr, paths.DataDir, appName, command == "")
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer closeLogger()

	logger.Info("startup configuration resolved",
		"app", appName, "dev_mode", devMode, "command", command,
		"config_path", configPath, "db_path", cfg.Database.Path)

	if command == "serve" {
		return runServe(ctx, cfg, fs.Args()[1:], appName, logger)
	}
	return runBoard(ctx, cfg, logger)
}

// runBoard starts the TUI over either the embedded sqlite store or a
// remote board server, depending on configuration.
func runBoard(ctx context.Context, cfg config.Config, logger *charmLog.Logger) error {
	var (
		backend mover.Backend
		loader  tui.Loader
	)

	if base := strings.TrimSpace(cfg.Remote.BaseURL); base != "" {
		logger.Info("remote mode", "base_url", base, "board", cfg.Remote.BoardID)
		httpBackend := mover.NewHTTPBackend(base, nil, logger)
		remoteBoardID := cfg.Remote.BoardID
		backend = httpBackend
		loader = func(ctx context.Context) (store.Snapshot, error) {
			return httpBackend.BoardState(ctx, remoteBoardID)
		}
	} else {
		logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
			return fmt.Errorf("open sqlite repository: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
			}
		}()

		svc := newService(repo, cfg)
		local := mover.NewLocalBackend(svc)
		backend = local
		loader = func(ctx context.Context) (store.Snapshot, error) {
			board, err := svc.EnsureDefaultBoard(ctx)
			if err != nil {
				return store.Snapshot{}, err
			}
			return local.BoardState(ctx, board.ID)
		}
	}

	var opts []tui.Option
	if cfg.Reorder.HoverIntervalMS > 0 {
		opts = append(opts, tui.WithHoverInterval(time.Duration(cfg.Reorder.HoverIntervalMS)*time.Millisecond))
	}
	if cfg.Reorder.MinDragDistance > 0 {
		opts = append(opts, tui.WithMinDragDistance(cfg.Reorder.MinDragDistance))
	}

	m := tui.NewModel(backend, loader, logger, opts...)
	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runServe runs the serve subcommand flow.
func runServe(ctx context.Context, cfg config.Config, args []string, appName string, logger *charmLog.Logger) error {
	fs := flag.NewFlagSet("flytt serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	fs.StringVar(&httpBind, "http", cfg.Server.Bind, "HTTP listen address")
	fs.StringVar(&apiEndpoint, "api-endpoint", cfg.Server.APIEndpoint, "HTTP API base endpoint")
	fs.StringVar(&mcpEndpoint, "mcp-endpoint", cfg.Server.MCPEndpoint, "MCP streamable HTTP endpoint")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse serve flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected serve arguments: %v", fs.Args())
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	svc := newService(repo, cfg)
	if _, err := svc.EnsureDefaultBoard(ctx); err != nil {
		return fmt.Errorf("ensure default board: %w", err)
	}

	serveCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving board API", "bind", httpBind, "api", apiEndpoint, "mcp", mcpEndpoint)
	return serveCommandRunner(serveCtx, serveradapter.Config{
		HTTPBind:      httpBind,
		APIEndpoint:   apiEndpoint,
		MCPEndpoint:   mcpEndpoint,
		ServerName:    appName,
		ServerVersion: version,
	}, serveradapter.Dependencies{
		Service: svc,
	})
}

// newService builds the application service with the configured board
// defaults.
func newService(repo app.Repository, cfg config.Config) *app.Service {
	templates := make([]app.SectionTemplate, 0, len(cfg.Board.Sections))
	for _, section := range cfg.Board.Sections {
		templates = append(templates, app.SectionTemplate{
			Name:     section.Name,
			Position: section.Position,
		})
	}
	return app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		DefaultBoardName: cfg.Board.DefaultName,
		SectionTemplates: templates,
	})
}

// newRuntimeLogger builds the process logger. While the board TUI owns the
// terminal, logs go to a file in the data directory instead of stderr.
func newRuntimeLogger(stderr io.Writer, dataDir, appName string, tuiActive bool) (*charmLog.Logger, func(), error) {
	options := charmLog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          appName,
	}
	if !tuiActive {
		return charmLog.NewWithOptions(stderr, options), func() {}, nil
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	logPath := filepath.Join(dataDir, appName+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := charmLog.NewWithOptions(file, options)
	return logger, func() { _ = file.Close() }, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return parsed, true
}
