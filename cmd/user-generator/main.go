package main

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/goombaio/namegenerator"
	"github.com/rs/zerolog/log"
)

const (
	timeInterval  = 1
	numberOfUsers = 100
	topic         = "users"
	kafkaProducer = "localhost:9094"
)

type user struct {
	UserID    string `json:"userId"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

func main() {
	users := generateUsers(numberOfUsers)

	producer, err := newKafkaProducer([]string{kafkaProducer})
	if err != nil {
		log.Error().Err(err).Msg("failed to create sync producer")
	}

	defer func() {
		if err = producer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	for {
		u, err := getRandomUser(users)
		if err != nil {
			log.Error().Err(err).Msg("failed to get random user")
		}

		if err := sendUserToKafka(producer, topic, u); err != nil {
			log.Error().Err(err).Msg("failed to send user to kafka")
		}

		log.Info().Msg("message sent")
		time.Sleep(timeInterval * time.Second)
	}
}

func generateUsers(count int) []user {
	users := make([]user, count)

	for i := range count {
		users[i] = generateUser()
	}

	return users
}

func generateUser() user {
	seed := time.Now().UTC().UnixNano()
	nameGenerator := namegenerator.NewNameGenerator(seed)
	fullName := nameGenerator.Generate()
	names := strings.Split(fullName, "-")

	return user{
		UserID:    uuid.NewString(),
		Firstname: capitalizeFirstLetter(names[0]),
		Lastname:  capitalizeFirstLetter(names[1]),
	}
}

func capitalizeFirstLetter(name string) string {
	return strings.ToUpper(string(name[0])) + name[1:]
}

func getRandomUser(users []user) (user, error) {
	index, err := rand.Int(rand.Reader, big.NewInt(int64(len(users))))
	if err != nil {
		return user{}, fmt.Errorf("random user selection error: %w", err)
	}

	return users[int(index.Int64())], nil
}

func newKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = false

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return producer, fmt.Errorf("error creating producer in newKafkaProducer(): %w", err)
	}

	return producer, nil
}

func sendUserToKafka(producer sarama.SyncProducer, topic string, u user) error {
	bytes, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(bytes),
	}

	if _, _, err = producer.SendMessage(message); err != nil {
		return fmt.Errorf("error sending message to Kafka: %w", err)
	}

	return nil
}
