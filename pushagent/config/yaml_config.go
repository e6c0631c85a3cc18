package config

import (
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type YamlVapidConfig struct {
	PublicKey       string `yaml:"public_key"`
	PrivateKey      string `yaml:"private_key"`
	SubscriberEmail string `yaml:"subscriber_email"`
}

type YamlApnsConfig struct {
	KeyID        string `yaml:"key_id"`
	TeamID       string `yaml:"team_id"`
	BundleID     string `yaml:"bundle_id"`
	P8KeyContent string `yaml:"p8_key_content"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID              string `yaml:"project_id"`
	ListenAddr             string `yaml:"listen_addr"`
	TopicID                string `yaml:"topic_id"`
	SubscriptionID         string `yaml:"subscription_id"`
	SubscriptionDLQTopicID string `yaml:"subscription_dlq_topic_id"`
	NumPipelineWorkers     int    `yaml:"num_pipeline_workers"`

	DeviceID    string `yaml:"device_id"`
	BackendURL  string `yaml:"backend_url"`
	BridgeURL   string `yaml:"bridge_url"`
	IdentityURL string `yaml:"identity_url"`

	CorsConfig  YamlCorsConfig  `yaml:"cors"`
	RedisConfig YamlRedisConfig `yaml:"redis"`
	VapidConfig YamlVapidConfig `yaml:"vapid"`
	ApnsConfig  YamlApnsConfig  `yaml:"apns"`

	FirebaseCredentialsFile string                      `yaml:"firebase_credentials_file"`
	WebSubscriptions        []agent.WebPushSubscription `yaml:"web_subscriptions"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:              baseCfg.ProjectID,
		ListenAddr:             baseCfg.ListenAddr,
		TopicID:                baseCfg.TopicID,
		SubscriptionID:         baseCfg.SubscriptionID,
		SubscriptionDLQTopicID: baseCfg.SubscriptionDLQTopicID,
		NumPipelineWorkers:     baseCfg.NumPipelineWorkers,
		DeviceID:               baseCfg.DeviceID,
		BackendURL:             baseCfg.BackendURL,
		BridgeURL:              baseCfg.BridgeURL,
		IdentityURL:            baseCfg.IdentityURL,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
		},
		Vapid: VapidConfig{
			PublicKey:       baseCfg.VapidConfig.PublicKey,
			PrivateKey:      baseCfg.VapidConfig.PrivateKey,
			SubscriberEmail: baseCfg.VapidConfig.SubscriberEmail,
		},
		Apns: ApnsConfig{
			KeyID:        baseCfg.ApnsConfig.KeyID,
			TeamID:       baseCfg.ApnsConfig.TeamID,
			BundleID:     baseCfg.ApnsConfig.BundleID,
			P8KeyContent: baseCfg.ApnsConfig.P8KeyContent,
		},
		FirebaseCredentialsFile: baseCfg.FirebaseCredentialsFile,
		WebSubscriptions:        baseCfg.WebSubscriptions,
	}

	if cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"subscription_id", cfg.SubscriptionID,
	)

	return cfg, nil
}
