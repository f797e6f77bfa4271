// jobmate-coach-service
//
// Career coaching backend for the JobMate apps.
// Exposes a REST API and a gRPC CoachService used by the Gateway for:
//   - industry insights: lazily generated per industry, refreshed weekly
//   - onboarding: profile + industry, saved in one transaction
//   - dashboard: insight for the user's industry
//   - interview practice: generated quizzes, graded results, tips
//   - resume: one stored resume per user, AI rewrites of sections
//
// Publishes EVENT_INSIGHT_CREATED / EVENT_INSIGHT_UPDATED to Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"jobmate/coach-service/internal/config"
	"jobmate/coach-service/internal/db"
	"jobmate/coach-service/internal/grpcserver"
	"jobmate/coach-service/internal/httpapi"
	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/interview"
	"jobmate/coach-service/internal/llm"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/onboarding"
	"jobmate/coach-service/internal/profile"
	"jobmate/coach-service/internal/resume"
	"jobmate/coach-service/internal/scheduler"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[coach-service] Config error: %v", err)
	}

	lg, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("[coach-service] Logger error: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	lg.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.Database.URL, db.PoolOptions{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		lg.Fatal("postgres connection failed", "err", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, lg); err != nil {
		lg.Fatal("migrations failed", "err", err)
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	lg.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.PoolSize)
	if err != nil {
		lg.Fatal("redis connection failed", "err", err)
	}
	defer rdb.Close()

	// ── Text generation ──────────────────────────────────────────────────────
	client, err := llm.NewOpenAIClient(llm.Options{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		MaxRetries: cfg.OpenAI.MaxRetries,
		Timeout:    cfg.OpenAITimeout(),
	}, lg)
	if err != nil {
		lg.Fatal("llm client", "err", err)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	insights := insight.NewService(
		insight.NewPGStore(pool),
		insight.NewLLMGenerator(client),
		lg,
		insight.Options{
			Locker:           insight.NewRedisLocker(rdb, cfg.LockTTL()),
			Publisher:        insight.NewRedisPublisher(rdb),
			TTL:              cfg.InsightTTL(),
			StrictValidation: cfg.Insights.StrictValidation,
		},
	)
	users := profile.NewPGStore(pool)
	onb := onboarding.NewService(users, insights, onboarding.NewPGTxRunner(pool), cfg.OnboardingTimeout(), lg)
	iv := interview.NewService(users, interview.NewPGRepository(pool), client, lg)
	rs := resume.NewService(users, resume.NewPGRepository(pool), client, lg)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(insights, cfg.Insights.RefreshSchedule, cfg.Insights.RefreshOnStart, lg)
	if err := sched.Start(ctx); err != nil {
		lg.Fatal("scheduler start failed", "err", err)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	httpapi.NewHandler(insights, onb, iv, rs, lg, version).RegisterRoutes(mux)

	// The write timeout covers a full generation, retries included.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
	}

	go func() {
		lg.Info("listening", "version", version, "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server error", "err", err)
		}
	}()

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		lg.Fatal("grpc listen failed", "err", err, "port", cfg.Server.GRPCPort)
	}
	gs := grpc.NewServer()
	grpcserver.Register(gs, grpcserver.NewServer(insights, onb))

	go func() {
		lg.Info("grpc listening", "port", cfg.Server.GRPCPort)
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			lg.Fatal("grpc server error", "err", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown error", "err", err)
	}
	gs.GracefulStop()
	cancel()
	sched.Stop()
	lg.Info("stopped")
}
