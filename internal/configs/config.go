package configs

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

const envFileName = ".env"

type Config struct {
	env *EnvSetting
}

type EnvSetting struct {
	AppPort      int    `env:"APP_PORT" env-default:"8081" env-description:"Application port"`
	PostgresDSN  string `env:"POSTGRES_DSN" env-required:"true" env-description:"PostgreSQL DSN, no default is shipped"`
	KafkaAddress string `env:"KAFKA_ADDRESS" env-default:"localhost:9094" env-description:"Kafka broker address"`
	// SettleDelay is the pause between the wallet delete and the user
	// delete in the deletion workflow.
	SettleDelay time.Duration `env:"SETTLE_DELAY" env-default:"709ms" env-description:"Settling period during user deletion"`
}

func findConfigFile() bool {
	_, err := os.Stat(envFileName)

	return err == nil
}

func (e *EnvSetting) GetHelpString() (string, error) {
	baseHeader := "Environment variables that can be set with env: "

	helpString, err := cleanenv.GetDescription(e, &baseHeader)
	if err != nil {
		return "", fmt.Errorf("failed to get help string: %w", err)
	}

	return helpString, nil
}

func New() *Config {
	envSetting := &EnvSetting{}

	helpString, err := envSetting.GetHelpString()
	if err != nil {
		log.Panic().Err(err).Msg("failed to get help string")
	}

	log.Info().Msg(helpString)

	if findConfigFile() {
		if err := cleanenv.ReadConfig(envFileName, envSetting); err != nil {
			log.Panic().Err(err).Msg("failed to read env config")
		}
	} else if err := cleanenv.ReadEnv(envSetting); err != nil {
		log.Panic().Err(err).Msg("error reading env config")
	}

	return &Config{env: envSetting}
}

func (c *Config) PrintDebug() {
	envReflect := reflect.Indirect(reflect.ValueOf(c.env))
	envReflectType := envReflect.Type()

	exp := regexp.MustCompile("([Tt]oken|[Pp]assword|DSN)")

	for i := range envReflect.NumField() {
		key := envReflectType.Field(i).Name

		if exp.MatchString(key) {
			val, _ := envReflect.Field(i).Interface().(string)
			log.Debug().Msgf("%s: len %d", key, len(val))

			continue
		}

		log.Debug().Msgf("%s: %v", key, spew.Sprintf("%#v", envReflect.Field(i).Interface()))
	}
}

func (c *Config) GetAppPort() int {
	return c.env.AppPort
}

func (c *Config) GetPostgresDSN() string {
	return c.env.PostgresDSN
}

func (c *Config) GetKafkaAddress() string {
	return c.env.KafkaAddress
}

func (c *Config) GetSettleDelay() time.Duration {
	return c.env.SettleDelay
}
