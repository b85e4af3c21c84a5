package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"atelier/internal/agent"
	"atelier/internal/config"
	"atelier/internal/db"
	"atelier/internal/server"
	"atelier/internal/transcript"
	"atelier/internal/ui"

	"github.com/lmittmann/tint"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		if err := runServer(); err != nil {
			fmt.Fprintf(os.Stderr, "atelier: %v\n", err)
			os.Exit(1)
		}
		return
	}

	serverURL := strings.TrimSpace(os.Getenv("ATELIER_SERVER_URL"))
	if serverURL == "" {
		serverURL = "http://" + config.Default().HTTPAddr
	}
	p := ui.NewProgram(serverURL)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "atelier: %v\n", err)
		os.Exit(1)
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return errors.New("ATELIER_API_KEY (or OPENROUTER_API_KEY) is not set")
	}

	logger := newLogger(cfg)

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	model := agent.NewOpenAIClient(client, cfg.Model)
	transcripts := transcript.NewSQLiteStore(conn)
	tester := agent.NewComponentTester(model, transcripts)

	srv := server.New(cfg, logger, conn, model, transcripts, tester)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "model", cfg.Model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(cfg config.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: cfg.LogLevel})
	}
	return slog.New(handler)
}
