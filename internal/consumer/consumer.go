package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

const (
	usersTopic = "users"
	groupID    = "user-wallet-service"
)

type usersService interface {
	CreateUser(ctx context.Context, user entity.User) (entity.UserInfo, error)
}

type Config struct {
	Addr string
}

// Consumer ingests externally produced user records and drives the
// composite creation for each of them.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	service usersService
}

func New(service usersService, conf Config) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup([]string{conf.Addr}, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("error creating consumer group: %w", err)
	}

	return &Consumer{
		group:   group,
		topics:  []string{usersTopic},
		service: service,
	}, nil
}

func (c *Consumer) Run(ctx context.Context) error {
	handler := &consumerHandler{service: c.service}

	for {
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			return fmt.Errorf("error from consumer: %w", err)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("context was canceled: %w", ctx.Err())
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("error closing consumer group: %w", err)
	}

	return nil
}

type consumerHandler struct {
	service usersService
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info().Msg("consumer group session initiated")

	return nil
}

func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var user entity.User

		if err := json.Unmarshal(message.Value, &user); err != nil {
			log.Warn().Err(err).Msg("failed to unmarshal user message, skipping")
			session.MarkMessage(message, "")

			continue
		}

		if _, err := h.service.CreateUser(session.Context(), user); err != nil {
			if errors.Is(err, entity.ErrUserExists) {
				log.Debug().Str("userId", string(user.UserID)).Msg("user already exists, skipping")
				session.MarkMessage(message, "")

				continue
			}

			log.Error().Err(err).Str("userId", string(user.UserID)).Msg("failed to create user from message")

			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
