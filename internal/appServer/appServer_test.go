package appServer

import (
	"context"
	"testing"

	"github.com/ds124wfegd/WB_L3/catering/config"
	"github.com/ds124wfegd/WB_L3/catering/pkg/telegram"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestServerAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", ServerAddr(&config.ServerConfig{Host: "0.0.0.0", Port: "8080"}))
	assert.Equal(t, ":9000", ServerAddr(&config.ServerConfig{Port: "9000"}))
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	SetupLogging(&config.Config{App: config.AppConfig{LogLevel: "debug"}})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	SetupLogging(&config.Config{App: config.AppConfig{LogLevel: "loud"}})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	assert.IsType(t, telegram.LogNotifier{}, newNotifier(config.TelegramConfig{Enabled: true}))
	assert.IsType(t, telegram.LogNotifier{}, newNotifier(config.TelegramConfig{BotToken: "token"}))
	assert.IsType(t, &telegram.Bot{}, newNotifier(config.TelegramConfig{Enabled: true, BotToken: "token", ChatID: "-1"}))
}

func TestNewProducerDisabled(t *testing.T) {
	producer := newProducer(context.Background(), config.KafkaConfig{Enabled: false, Brokers: []string{"kafka:9092"}})

	assert.NoError(t, producer.Publish(context.Background(), "booking.status_changed", "key", map[string]string{"status": "confirmed"}))
	assert.NoError(t, producer.Close())
}
