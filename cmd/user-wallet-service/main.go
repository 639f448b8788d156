package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/tbaschet/user-wallet-service/internal/configs"
	"github.com/tbaschet/user-wallet-service/internal/consumer"
	"github.com/tbaschet/user-wallet-service/internal/controller/rest"
	usershandler "github.com/tbaschet/user-wallet-service/internal/controller/rest/users-handler"
	"github.com/tbaschet/user-wallet-service/internal/producer"
	"github.com/tbaschet/user-wallet-service/internal/store"
	usersservice "github.com/tbaschet/user-wallet-service/internal/usecase/users-service"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf := configs.New()
	conf.PrintDebug()

	pgStore, err := store.New(ctx, store.Config{Dsn: conf.GetPostgresDSN()})
	if err != nil {
		log.Panic().Err(err).Msg("failed to connect to database")
	}

	defer pgStore.Close()

	if err := pgStore.Migrate(migrate.Up); err != nil {
		log.Panic().Err(err).Msg("failed to migrate")
	}

	log.Info().Msg("successful migration")

	eventProducer, err := producer.New(producer.Config{Addr: conf.GetKafkaAddress()})
	if err != nil {
		log.Panic().Err(err).Msg("failed to create kafka user events producer")
	}

	defer func() {
		if err = eventProducer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close kafka user events producer")
		}
	}()

	usersService := usersservice.New(
		usersservice.Config{SettleDelay: conf.GetSettleDelay()},
		pgStore,
		pgStore,
		pgStore,
		eventProducer,
	)

	usersHandler := usershandler.New(usersService)

	server := rest.New(rest.Config{Port: conf.GetAppPort()}, usersHandler)

	kafkaConsumer, err := consumer.New(usersService, consumer.Config{Addr: conf.GetKafkaAddress()})
	if err != nil {
		log.Panic().Err(err).Msg("failed to create kafka consumer")
	}

	defer func() {
		if err = kafkaConsumer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	log.Info().Msg("kafka consumer created")

	errGr, ctx := errgroup.WithContext(ctx)

	errGr.Go(func() error {
		if err := kafkaConsumer.Run(ctx); err != nil {
			return fmt.Errorf("failed to run kafka consumer: %w", err)
		}

		return nil
	})

	errGr.Go(func() error {
		if err := server.Run(ctx); err != nil {
			return fmt.Errorf("failed to run the server: %w", err)
		}

		return nil
	})

	if err = errGr.Wait(); err != nil {
		log.Panic().Err(err).Msg("failed to wait blocks")
	}
}
