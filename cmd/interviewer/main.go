package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/interviewer/internal/gcp"
	"github.com/pavelanni/interviewer/internal/handler"
	appI18n "github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/proctor"
	"github.com/pavelanni/interviewer/internal/roles"
	"github.com/pavelanni/interviewer/internal/speech"
	"github.com/pavelanni/interviewer/internal/store"
	"github.com/pavelanni/interviewer/internal/workpool"
)

const counterTTL = 24 * time.Hour

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewer",
		Short: "Adaptive mock interview server with proctoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	f.String("db", "interviewer.db", "SQLite database path")
	f.String("llm-provider", "openai", "LLM provider (openai, gemini, anthropic, offline)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Int("max-questions", interview.DefaultMaxQuestions, "Answers per interview")
	f.Duration("turn-timeout", interview.DefaultTurnTimeout, "Time limit for processing one answer")
	f.Int("max-concurrent-calls", 4, "Concurrent LLM, speech and vision calls")
	f.Int("retry-attempts", 3, "Attempts per external call")
	f.Duration("retry-backoff", 2*time.Second, "Wait between attempts")
	f.StringP("lang", "l", "en", "Default feedback language (en, ru)")
	f.String("roles", "", "YAML file overriding the built-in role prompts")
	f.String("redis-url", "", "Redis URL for proctoring counters (empty = in-process)")
	f.Bool("speech-enabled", false, "Transcribe audio answers with Google Speech-to-Text")
	f.String("speech-language", "en-US", "Speech recognition language code")
	f.Int("speech-sample-rate", 48000, "Sample rate for WebM/Ogg Opus audio")
	f.Bool("vision-enabled", false, "Analyse video frames with Google Cloud Vision")
	f.StringSlice("allowed-origins", nil, "Allowed WebSocket origins (empty = any)")
	f.String("admin-password", "", "Initial admin password (or set INTERVIEWER_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export interview results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "interviewer.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewer")
	v.AddConfigPath("/etc/interviewer")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	catalog := roles.Default()
	if path := v.GetString("roles"); path != "" {
		if catalog, err = roles.Load(path); err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		slog.Info("loaded role catalog", "path", path, "roles", len(catalog.Roles))
	}

	pool := workpool.New(v.GetInt("max-concurrent-calls"))
	retry := gcp.Retry{MaxAttempts: v.GetInt("retry-attempts"), Backoff: v.GetDuration("retry-backoff")}

	gen, err := newGenerator(ctx, v, pool)
	if err != nil {
		return err
	}

	maxQuestions := v.GetInt("max-questions")
	if err := db.RecordRunConfig(maxQuestions, gen.ModelID()); err != nil {
		return fmt.Errorf("record run config: %w", err)
	}

	deps := interview.Deps{
		Store:     db,
		Generator: gen,
		Catalog:   catalog,
	}

	if v.GetBool("speech-enabled") {
		t, err := speech.NewGoogle(ctx, speech.GoogleConfig{
			LanguageCode:    v.GetString("speech-language"),
			SampleRateHertz: v.GetInt("speech-sample-rate"),
			Retry:           retry,
		})
		if err != nil {
			return fmt.Errorf("create speech transcriber: %w", err)
		}
		defer t.Close()
		deps.Transcriber = speech.WithPool(t, pool)
	}

	if v.GetBool("vision-enabled") {
		a, err := proctor.NewVisionAnalyzer(ctx, retry)
		if err != nil {
			return fmt.Errorf("create vision analyzer: %w", err)
		}
		defer a.Close()
		deps.Faces = proctor.WithPool(a, pool)
	}

	if url := v.GetString("redis-url"); url != "" {
		rdb, err := proctor.NewRedisClient(ctx, url)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		deps.Counters = proctor.NewRedisCounters(rdb, counterTTL)
		slog.Info("proctoring counters in redis")
	}

	mgr := interview.NewManager(interview.Config{
		MaxQuestions: maxQuestions,
		TurnTimeout:  v.GetDuration("turn-timeout"),
	}, deps)

	h := handler.New(mgr, db, model.InterviewConfig{
		MaxQuestions:   maxQuestions,
		Lang:           lang,
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	slog.Info("starting server",
		"addr", addr,
		"provider", v.GetString("llm-provider"),
		"model", gen.ModelID(),
		"lang", lang,
		"max_questions", maxQuestions,
		"speech", v.GetBool("speech-enabled"),
		"vision", mgr.VisionEnabled(),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down", "live_sessions", mgr.Registry().Len())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), interview.DefaultTurnTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newGenerator(ctx context.Context, v *viper.Viper, pool *workpool.Pool) (llm.Generator, error) {
	cfg := llm.Config{
		Provider: v.GetString("llm-provider"),
		BaseURL:  v.GetString("llm-url"),
		APIKey:   v.GetString("llm-key"),
		Model:    v.GetString("llm-model"),
		Retry: llm.RetryConfig{
			MaxAttempts: v.GetInt("retry-attempts"),
			Backoff:     v.GetDuration("retry-backoff"),
		},
	}

	// An unreachable OpenAI-compatible endpoint is not fatal: answers are
	// then scored by the heuristics.
	if p := strings.ToLower(cfg.Provider); p == "" || p == "openai" {
		if err := llm.New(cfg.BaseURL, cfg.APIKey, cfg.Model).Ping(ctx); err != nil {
			slog.Warn("LLM health check failed", "url", cfg.BaseURL, "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", cfg.BaseURL, "model", cfg.Model)
		}
	}

	gen, err := llm.NewGenerator(ctx, cfg, pool)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return gen, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}
	maxQuestions, err := db.MaxQuestions()
	if err != nil {
		return fmt.Errorf("read run config: %w", err)
	}

	data, err := json.MarshalIndent(model.InterviewExport{
		ExportedAt:   time.Now().UTC(),
		MaxQuestions: maxQuestions,
		Results:      results,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	slog.Info("exported interviews", "count", len(results))
	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		if password != "" {
			return updateAdminPassword(db, password)
		}
		return nil
	}

	if password == "" {
		slog.Warn("no admin password set; admin endpoints are disabled until one is configured")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}

// updateAdminPassword rotates the admin password when the configured one
// no longer matches.
func updateAdminPassword(db *store.Store, password string) error {
	u, err := db.GetUserByUsername("admin")
	if err != nil || u == nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := db.UpdatePasswordHash("admin", string(hash)); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	slog.Info("updated admin password", "username", "admin")
	return nil
}
