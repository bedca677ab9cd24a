package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/config"
	"github.com/rankforge/leaderboard/internal/db"
	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/identity"
	"github.com/rankforge/leaderboard/internal/kafka"
	"github.com/rankforge/leaderboard/internal/leaderboard"
	"github.com/rankforge/leaderboard/internal/logger"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/repository"
	"github.com/rankforge/leaderboard/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo tenant, project, api key and leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)
		defer func() { _ = logger.Log.Sync() }()

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		producer := kafka.NewProducerFromConfig(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()

		clk := clock.SystemClock{}
		pub := events.NewPublisher(producer, logger.Log)

		tenantsRepo := repository.NewTenantsRepository(sqlDB)
		projectsRepo := repository.NewProjectsRepository(sqlDB)
		apiKeysRepo := repository.NewApiKeysRepository(sqlDB)
		subscriptionsRepo := repository.NewSubscriptionsRepository(sqlDB)
		leaderboardsRepo := repository.NewLeaderboardsRepository(sqlDB)
		seasonsRepo := repository.NewSeasonsRepository(sqlDB)

		identitySvc := identity.New(tenantsRepo, projectsRepo, apiKeysRepo, subscriptionsRepo, clk)
		leaderboardSvc := leaderboard.New(leaderboardsRepo, seasonsRepo, pub, clk)

		ctx := context.Background()

		log.Println(">> Seeding demo tenant...")
		tenant, err := identitySvc.CreateTenant(ctx, "Acme Games", "ops@acmegames.example")
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}

		now := clk.Now()
		sub := model.Subscription{
			ID:          util.New(),
			TenantID:    tenant.ID,
			PlanType:    model.PlanPro,
			Status:      model.SubscriptionActive,
			PeriodStart: now,
			PeriodEnd:   now.AddDate(0, 1, 0),
			CreatedAt:   now,
		}
		if err := subscriptionsRepo.Insert(ctx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		project, err := identitySvc.CreateProject(ctx, tenant.ID, "Space Raiders")
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		_, plaintext, err := identitySvc.CreateApiKey(ctx, tenant.ID, project.ID, "seed-key")
		if err != nil {
			return fmt.Errorf("create api key: %w", err)
		}

		lb := model.Leaderboard{
			ProjectID:  project.ID,
			TenantID:   tenant.ID,
			Name:       "weekly-high-score",
			SortOrder:  model.SortDesc,
			UpdateMode: model.ModeBest,
			TTLDays:    7,
		}
		limits := model.Limits(model.PlanPro)
		if _, err := leaderboardSvc.Create(ctx, lb, limits.Leaderboards, 0); err != nil {
			return fmt.Errorf("create leaderboard: %w", err)
		}

		time.Sleep(50 * time.Millisecond) // let the publish flush before the producer closes

		log.Println(">> Seed completed")
		log.Printf(">> tenant=%s project=%s apiKey=%s", tenant.ID, project.ID, plaintext)
		return nil
	},
}
