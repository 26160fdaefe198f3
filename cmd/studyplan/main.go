package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/conorfennell/studyplan/internal/cache"
	"github.com/conorfennell/studyplan/internal/config"
	"github.com/conorfennell/studyplan/internal/extract"
	"github.com/conorfennell/studyplan/internal/gemini"
	"github.com/conorfennell/studyplan/internal/qa"
	"github.com/conorfennell/studyplan/internal/schedule"
	"github.com/conorfennell/studyplan/internal/storage"
	"github.com/conorfennell/studyplan/internal/sync"
	"github.com/conorfennell/studyplan/internal/web"
)

const usage = `Usage: studyplan [command] [flags]

Commands:
  serve                         Run the HTTP API (default)
  extract <file>                Print the questions found in an exam paper
  schedule [--date YYYY-MM-DD]  Print the study schedule for a day
  sync                          Answer the questions in every source and refresh their sets
  add-source <path> --set NAME  Register a directory or git URL of exam papers

Flags:
`

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("studyplan failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	flags := pflag.NewFlagSet("studyplan", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	date := flags.String("date", "", "Day to plan for, YYYY-MM-DD (schedule)")
	setName := flags.String("set", "", "Q&A set the source feeds (add-source)")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		return serve(ctx, cfg)
	case "extract":
		if flags.NArg() != 1 {
			return fmt.Errorf("extract needs exactly one file")
		}
		return printQuestions(flags.Arg(0))
	case "schedule":
		return printSchedule(cfg, *date)
	case "sync":
		return runSync(ctx, cfg)
	case "add-source":
		if flags.NArg() != 1 {
			return fmt.Errorf("add-source needs exactly one path or git URL")
		}
		return addSource(ctx, cfg, flags.Arg(0), *setName)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// app holds the components shared by the commands that touch storage.
type app struct {
	db    *storage.DB
	qa    *qa.Service
	close func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Database opened successfully", "path", cfg.DBPath)

	closers := []func(){func() { db.Close() }}
	var answers qa.AnswerCache = db

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			db.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		slog.Info("Connected to Redis", "addr", cfg.Redis.Addr)
		answers = cache.NewAnswerCache(rdb, cfg.Redis.TTL)
		closers = append(closers, func() { rdb.Close() })
	}

	if !cfg.Gemini.Enabled() {
		slog.Warn("GEMINI_API_KEY not set, answers will be placeholders")
	}

	return &app{
		db: db,
		qa: qa.NewService(gemini.New(cfg.Gemini), answers),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	exams, err := cfg.ExamEvents()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	server := web.NewServer(cfg.Server, a.db, a.qa, exams, cfg.ReposDir)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr, "exams", len(exams))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func printQuestions(path string) error {
	questions, err := extract.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(questions)
}

func printSchedule(cfg *config.Config, date string) error {
	exams, err := cfg.ExamEvents()
	if err != nil {
		return err
	}

	ref := time.Now()
	if date != "" {
		if ref, err = time.Parse(time.DateOnly, date); err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}
	}

	fmt.Printf("Study schedule for %s\n\n", ref.Format("Monday, 2 January 2006"))
	for _, entry := range schedule.Build(ref, exams) {
		fmt.Printf("%-15s %s\n", entry.Time, entry.Activity)
	}
	return nil
}

func runSync(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := sync.RunSync(ctx, a.db, a.qa, cfg.ReposDir)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d of %d sources, %d pairs, %d failed.\n",
		report.Synced, report.Sources, report.Pairs, report.Failed)
	return nil
}

func addSource(ctx context.Context, cfg *config.Config, path, setName string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	source, err := sync.AddSource(ctx, a.db, path, setName)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s source %d: %s -> %s\n", source.Type, source.ID, source.Path, source.SetName)
	return nil
}
