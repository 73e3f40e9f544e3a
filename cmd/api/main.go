package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v79"

	"nutrascan/internal/adapter/repo"
	"nutrascan/internal/gate"
	"nutrascan/internal/http/handlers"
	httpapi "nutrascan/internal/http/httpapi"
	"nutrascan/internal/infra"
	"nutrascan/internal/infra/geoip"
	"nutrascan/internal/infra/google"
	"nutrascan/internal/providers/analysis"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	// Anonymous free-trial counting prefers Redis so counts survive restarts
	// and are shared between instances; a single-instance deployment without
	// REDIS_URL falls back to process memory.
	var anonCounter gate.Counter
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		anonCounter = gate.NewRedisCounter(redisClient, cfg.AnonQuotaTTL)
		logger.Info().Msg("anonymous quota counter: redis")
	} else {
		anonCounter = gate.NewMemoryCounter()
		logger.Warn().Msg("anonymous quota counter: in-memory (counts reset on restart)")
	}

	runner := infra.NewSQLRunner(dbpool, logger)
	profiles := repo.NewProfileRepository(runner)
	analyses := repo.NewAnalysisRepository(runner)

	var analyzer analysis.Analyzer
	var recommender analysis.Recommender
	if cfg.GeminiAPIKey != "" {
		gem, err := analysis.NewGeminiAnalyzer(analysis.GeminiOptions{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			BaseURL:  cfg.GeminiBaseURL,
			Fallback: analysis.NewStaticAnalyzer(),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build gemini analyzer")
		}
		analyzer, recommender = gem, gem
		logger.Info().Str("model", cfg.GeminiModel).Msg("analysis provider: gemini")
	} else {
		static := analysis.NewStaticAnalyzer()
		analyzer, recommender = static, static
		logger.Warn().Msg("analysis provider: static fallback (GEMINI_API_KEY not set)")
	}

	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, local suggestions stay unlabeled")
	}

	if cfg.StripeSecretKey != "" {
		stripe.Key = cfg.StripeSecretKey
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, billing routes will refuse")
	}

	app := &handlers.App{
		SQL:            runner,
		Logger:         logger,
		Config:         cfg,
		Gate:           gate.New(anonCounter, profiles, cfg.FreeAnalysisLimit, logger),
		Analyzer:       analyzer,
		Recommender:    recommender,
		Profiles:       profiles,
		Analyses:       analyses,
		GoogleVerifier: google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
		GeoIP:          geoResolver,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
