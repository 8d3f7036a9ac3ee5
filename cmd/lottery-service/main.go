package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/auth"
	lcache "github.com/radieske/bolao-platform/internal/lottery-service/cache"
	lhttp "github.com/radieske/bolao-platform/internal/lottery-service/http"
	"github.com/radieske/bolao-platform/internal/lottery-service/notifier"
	"github.com/radieske/bolao-platform/internal/lottery-service/payment"
	kpub "github.com/radieske/bolao-platform/internal/lottery-service/producer"
	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
	"github.com/radieske/bolao-platform/internal/lottery-service/service"
	"github.com/radieske/bolao-platform/internal/shared/cache"
	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/db"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/internal/shared/logger"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache de concurso)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writers
	paymentWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentConfirmed)
	defer paymentWriter.Close()
	notifWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotifications)
	defer notifWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicContestSettled)
	defer settledWriter.Close()

	svc := service.New(service.Deps{
		Log:      log,
		Wallets:  repo.NewWallets(pg),
		Contests: repo.NewContests(pg),
		Bets:     repo.NewBets(pg),
		Txs:      repo.NewTransactions(pg),
		Tiers:    repo.NewTiers(pg),
		Cache:    lcache.New(rdb),
		Notifier: notifier.New(log, notifWriter, settledWriter),
		Payments: payment.New(cfg.PixURL, cfg.WebhookURL),

		MinDepositCents:    cfg.MinDepositCents,
		MinWithdrawalCents: cfg.MinWithdrawalCents,
	})

	api := lhttp.NewServer(log, svc, auth.New(cfg.AuthURL), kpub.NewKafkaPublisher(paymentWriter))
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("lottery-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
