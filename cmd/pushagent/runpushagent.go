package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-push-agent/internal/backend"
	"github.com/tinywideclouds/go-push-agent/internal/platform/apns"
	"github.com/tinywideclouds/go-push-agent/internal/platform/bridge"
	"github.com/tinywideclouds/go-push-agent/internal/platform/fcm"
	"github.com/tinywideclouds/go-push-agent/internal/platform/web"
	"github.com/tinywideclouds/go-push-agent/internal/storage/cache"
	fsStore "github.com/tinywideclouds/go-push-agent/internal/storage/firestore"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"

	"github.com/tinywideclouds/go-push-agent/pushagent"
	"github.com/tinywideclouds/go-push-agent/pushagent/config"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-push-agent")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients ---
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("PubSub client failed", "err", err)
		os.Exit(1)
	}
	defer psClient.Close()

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore client failed", "err", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to connect to Redis", "err", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// --- Device-local state ---
	tokenCache := cache.NewTokenCache(redisClient, cfg.DeviceID)
	interactions := cache.NewInteractionStore(redisClient, cfg.DeviceID)
	inbox := fsStore.NewInboxStore(fsClient)

	// --- Companion bridge & backend ---
	bridgeClient := bridge.NewClient(cfg.BridgeURL, logger)
	registrar := backend.NewClient(cfg.BackendURL, logger)

	// --- Auth ---
	identityURL := cfg.IdentityURL
	if identityURL == "" {
		identityURL = "http://localhost:3000"
	}
	jwksURL, _ := middleware.DiscoverAndValidateJWTConfig(identityURL, middleware.RSA256, logger)
	authMiddleware, _ := middleware.NewJWKSAuthMiddleware(jwksURL, logger)

	// --- Notifiers ---
	var notifiers []agent.Notifier

	// A. Mobile (FCM)
	var fbOpts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		fbOpts = append(fbOpts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, fbOpts...)
	if err != nil {
		logger.Error("Failed to initialize Firebase App", "err", err)
		os.Exit(1)
	}
	fcmMessaging, err := fbApp.Messaging(ctx)
	if err != nil {
		logger.Error("Failed to create FCM messaging client", "err", err)
		os.Exit(1)
	}
	notifiers = append(notifiers, fcm.NewNotifier(fcmMessaging, tokenCache, logger))

	// B. iOS (APNs) - optional, needs signing material
	if cfg.Apns.P8KeyContent != "" {
		apnsNotifier, err := apns.NewNotifier(apns.Config{
			KeyID:        cfg.Apns.KeyID,
			TeamID:       cfg.Apns.TeamID,
			BundleID:     cfg.Apns.BundleID,
			P8KeyContent: cfg.Apns.P8KeyContent,
		}, tokenCache, logger)
		if err != nil {
			logger.Error("Failed to initialize APNs notifier", "err", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, apnsNotifier)
		logger.Info("APNs notifier enabled", "bundle_id", cfg.Apns.BundleID)
	}

	// C. Web (VAPID) - optional, needs keys
	if cfg.Vapid.PrivateKey != "" && cfg.Vapid.PublicKey != "" {
		notifiers = append(notifiers, web.NewNotifier(web.VapidConfig{
			PublicKey:       cfg.Vapid.PublicKey,
			PrivateKey:      cfg.Vapid.PrivateKey,
			SubscriberEmail: cfg.Vapid.SubscriberEmail,
		}, cfg.WebSubscriptions, logger))
		logger.Info("Web push notifier enabled", "subscriptions", len(cfg.WebSubscriptions))
	}

	// --- Consumer & Service ---
	consumer, err := newIngestionConsumer(ctx, cfg, psClient, logger)
	if err != nil {
		logger.Error("Consumer creation failed", "err", err)
		os.Exit(1)
	}

	service, err := pushagent.New(cfg, pushagent.Deps{
		Consumer:       consumer,
		Notifiers:      notifiers,
		Navigator:      bridgeClient,
		TokenSource:    bridgeClient,
		Registrar:      registrar,
		TokenCache:     tokenCache,
		Interactions:   interactions,
		Inbox:          inbox,
		AuthMiddleware: authMiddleware,
	}, logger)
	if err != nil {
		logger.Error("Agent creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting push agent...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Agent shutdown with error", "err", err)
		os.Exit(1)
	}
}

func newIngestionConsumer(ctx context.Context, cfg *config.Config, psClient *pubsub.Client, logger *slog.Logger) (messagepipeline.MessageConsumer, error) {
	sub := convertPubsub(cfg.ProjectID, cfg.PubsubConsumerConfig.SubscriptionID, "subscriptions")
	topicID := convertPubsub(cfg.ProjectID, cfg.TopicID, "topics")
	dlt := convertPubsub(cfg.ProjectID, cfg.SubscriptionDLQTopicID, "topics")

	subConfig := &pubsubpb.Subscription{
		Name:               sub,
		Topic:              topicID,
		AckDeadlineSeconds: 10,
		DeadLetterPolicy: &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     dlt,
			MaxDeliveryAttempts: 5,
		},
		EnableMessageOrdering: false,
	}
	logger.Debug("Ensuring subscription exists", "sub", subConfig.Name, "topic", subConfig.Topic)
	_, err := psClient.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			logger.Debug("Subscription already exists, skipping creation", "sub", subConfig.Name)
		} else {
			logger.Error("Failed to create subscription", "sub", subConfig.Name, "err", err)
			return nil, fmt.Errorf("could not create sub: %s", sub)
		}
	}

	return messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(subConfig.Name), psClient, slog.New(slog.DiscardHandler),
	)
}

type PS string

func convertPubsub(project, id string, ps PS) string {
	return fmt.Sprintf("projects/%s/%s/%s", project, ps, id)
}
