package main

import (
	"context"
	"log"
	"os"

	"eduscore/internal/app/notify"
	"eduscore/internal/app/service"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/repository"
	"eduscore/internal/platform/config"
	"eduscore/internal/platform/database"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	mongoConn, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	// Unique indexes back score-per-pair and exam-code uniqueness.
	if err := database.EnsureIndexes(ctx, mongoConn.DB); err != nil {
		mongoConn.Close(context.Background())
		log.Fatalf("ERROR: %v", err)
	}

	repos := repository.NewMongoRepositories(mongoConn.DB)
	services := service.New(
		repos,
		security.NewTokenManager(cfg.JWTKey, cfg.JWTExp),
		notify.NewDirectPublisher(repos.Notifications),
		nil,
	)

	cli := &commandLine{
		services: services,
		clearDB: func(ctx context.Context) (map[string]int64, error) {
			return database.Clear(ctx, mongoConn.DB)
		},
	}
	err = cli.run(os.Args)
	mongoConn.Close(context.Background())
	if err != nil {
		if err != errHelp {
			log.Printf("ERROR: %v", err)
		}
		os.Exit(1)
	}
}
