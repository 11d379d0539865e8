package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduscore/internal/api"
	"eduscore/internal/api/middleware"
	"eduscore/internal/app/notify"
	"eduscore/internal/app/scheduler"
	"eduscore/internal/app/service"
	"eduscore/internal/app/worker"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/repository"
	"eduscore/internal/platform/config"
	"eduscore/internal/platform/database"
	"eduscore/internal/platform/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	fmt.Println("Configuration loaded.")

	ctx := context.Background()

	// 2. Initialize Database
	mongoConn, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	defer mongoConn.Close(context.Background())
	// Unique indexes back score-per-pair and exam-code uniqueness.
	if err := database.EnsureIndexes(ctx, mongoConn.DB); err != nil {
		mongoConn.Close(context.Background())
		log.Fatalf("ERROR: %v", err)
	}

	// 3. Initialize Redis (optional)
	rdb, err := queue.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Printf("WARN: %v, continuing without redis", err)
		cfg.NotificationMode = config.NotificationModeDirect
	}
	defer queue.CloseRedis(rdb)

	// 4. Repositories & Services
	repos := repository.NewMongoRepositories(mongoConn.DB)
	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)

	direct := notify.NewDirectPublisher(repos.Notifications)
	var publisher notify.Publisher = direct
	var locker service.Locker
	if rdb != nil {
		locker = queue.NewRedisLocker(rdb, cfg.ExamCodeLockTTL)
		if cfg.NotificationMode == config.NotificationModeQueue {
			publisher = notify.NewQueuePublisher(rdb, cfg.NotificationQueueName, direct)
		}
	}
	services := service.New(repos, tokens, publisher, locker)
	fmt.Printf("Services initialized (notifications: %s).\n", cfg.NotificationMode)

	// 5. Background jobs
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if rdb != nil && cfg.NotificationMode == config.NotificationModeQueue {
		notificationWorker := worker.NewNotificationWorker(rdb, cfg.NotificationQueueName, repos.Notifications)
		go notificationWorker.Start(workerCtx)
	}

	var maintenance *scheduler.Scheduler
	if cfg.MaintenanceCron != "" {
		maintenance, err = scheduler.New(cfg.MaintenanceCron, services.Scores)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		maintenance.Start()
	}

	// 6. Router & HTTP Server
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auth := middleware.NewAuth(tokens, repos.Users)
	router := api.NewRouter(cfg, services, auth, registry)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s (%s)", cfg.APIPort, cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop

	log.Println("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if maintenance != nil {
		maintenance.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and background jobs stopped gracefully.")
}
