package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rankforge/leaderboard/internal/config"
	"github.com/rankforge/leaderboard/internal/db"
	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/kafka"
	"github.com/rankforge/leaderboard/internal/logger"
	"github.com/rankforge/leaderboard/internal/repository"
	lbworker "github.com/rankforge/leaderboard/internal/worker"
)

// projectorCmd groups the three event-projection workers that keep MySQL,
// the ClickHouse mirror and the Redis sorted-set metadata hash in sync
// with the durable event stream. Each subject runs as its own consumer
// group so a slow score.updated backlog never starves leaderboard
// lifecycle events, and vice versa.
var projectorCmd = &cobra.Command{
	Use:   "projector",
	Short: "Run event projection workers (score-events | leaderboard-created | leaderboard-deleted)",
}

var scoreEventsCmd = &cobra.Command{
	Use:   "score-events",
	Short: "Project score.updated events into MySQL and ClickHouse",
	RunE:  runScoreEventsProjector,
}

var leaderboardCreatedCmd = &cobra.Command{
	Use:   "leaderboard-created",
	Short: "Project leaderboard.created events into the Redis metadata hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRedisProjector(cmd, events.SubjectLeaderboardCreated, lbworker.LeaderboardCreatedHandler)
	},
}

var leaderboardDeletedCmd = &cobra.Command{
	Use:   "leaderboard-deleted",
	Short: "Project leaderboard.deleted events into a Redis key deletion",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRedisProjector(cmd, events.SubjectLeaderboardDeleted, lbworker.LeaderboardDeletedHandler)
	},
}

func init() {
	projectorCmd.AddCommand(scoreEventsCmd)
	projectorCmd.AddCommand(leaderboardCreatedCmd)
	projectorCmd.AddCommand(leaderboardDeletedCmd)
}

// runRedisProjector wires the two Redis-only handlers, which never need
// MySQL or ClickHouse.
func runRedisProjector(cmd *cobra.Command, subject string, newHandler func(*redis.Client) lbworker.Handler) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel)
	defer func() { _ = logger.Log.Sync() }()

	rdb, err := db.NewRedisClient(db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer rdb.Close()

	consumer := newConsumer(cfg, subject)
	defer consumer.Close()

	w := lbworker.New(consumer, subject, newHandler(rdb), logger.Log)
	if cfg.Worker.WorkerCount > 0 {
		w.Workers = cfg.Worker.WorkerCount
	}

	return runWithShutdown(subject, w)
}

// runScoreEventsProjector wires the MySQL-backed score-events handler,
// mirroring into ClickHouse when it is reachable. ClickHouse is treated
// as best-effort reporting infrastructure: if it can't be reached at
// startup, the projector still runs against MySQL alone.
func runScoreEventsProjector(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
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

	var chRepo repository.CHScoreEventsRepository
	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		log.Printf("clickhouse unavailable, mirroring disabled: %v", err)
	} else {
		defer chDB.Close()
		chRepo = repository.NewCHScoreEventsRepository(chDB)
	}

	scoreEvents := repository.NewScoreEventsRepository(sqlDB)
	handler := lbworker.ScoreUpdatedHandler(scoreEvents, chRepo)

	consumer := newConsumer(cfg, events.SubjectScoreUpdated)
	defer consumer.Close()

	w := lbworker.New(consumer, events.SubjectScoreUpdated, handler, logger.Log)
	if cfg.Worker.WorkerCount > 0 {
		w.Workers = cfg.Worker.WorkerCount
	}

	return runWithShutdown(events.SubjectScoreUpdated, w)
}

func newConsumer(cfg config.Config, subject string) *kafka.Consumer {
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "leaderboard-projector"
	}
	groupID = groupID + "-" + subject

	return kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          subject,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
}

func runWithShutdown(subject string, w *lbworker.Worker) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> projector started subject=%s workers=%d", subject, w.Workers)
	return w.Run(ctx)
}
