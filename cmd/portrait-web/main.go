package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-portrait-studio/internal/api"
	"github.com/fpang/ai-portrait-studio/internal/auth"
	"github.com/fpang/ai-portrait-studio/internal/config"
	"github.com/fpang/ai-portrait-studio/internal/gemini"
	"github.com/fpang/ai-portrait-studio/internal/invite"
	"github.com/fpang/ai-portrait-studio/internal/logging"
	"github.com/fpang/ai-portrait-studio/internal/studio"
)

// CLI flags
var portFlag int

var rootCmd = &cobra.Command{
	Use:   "portrait-web",
	Short: "AI portrait studio API server",
	Long: `Portrait Web serves the AI portrait studio API: it turns one reference
photo into a set of professional studio portrait variants through analysis,
art direction, quality-gated generation, and identity review.

Configuration comes from the environment (a .env file is honored):
GEMINI_API_KEY and INVITE_CODES are required; API_SECRET enables request
signing.

Examples:
  portrait-web
  portrait-web --port 9090`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides PORT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded configuration from .env")
	}

	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if portFlag > 0 {
		cfg.Port = portFlag
	}

	client, err := gemini.NewClient(context.Background(), cfg.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	engine := studio.NewEngine(gemini.NewInvoker(client), studio.Options{
		AnalysisModels:          cfg.AnalysisCandidates(),
		GenerationModels:        cfg.GenerationCandidates(),
		MaxPromptIterations:     cfg.MaxPromptIterations,
		MaxGenerationIterations: cfg.MaxGenerationIterations,
	})

	handler := api.NewHandler(cfg, auth.NewVerifier(cfg.APISecret), invite.NewStore(cfg.InviteCodes), engine)

	mux := http.NewServeMux()
	mux.Handle("/api/gemini", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.WithRequestLogging(mux),
		// Write timeout must cover the longest pipeline request.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().
		Int("port", cfg.Port).
		Int("invite_codes", len(cfg.InviteCodes)).
		Bool("signing_enabled", cfg.APISecret != "").
		Strs("analysis_models", cfg.AnalysisCandidates()).
		Strs("generation_models", cfg.GenerationCandidates()).
		Msg("Starting portrait API server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
