package bootstrap

import (
	"log"

	"chat-notify-be/internal/config"
	"chat-notify-be/internal/handler"
	"chat-notify-be/internal/pkg/logger"
	"chat-notify-be/internal/pkg/mailer"
	"chat-notify-be/internal/realtime"
	"chat-notify-be/internal/repository/implementation"
	"chat-notify-be/internal/service"
	"chat-notify-be/pkg/bus"
	"chat-notify-be/pkg/events"
	pktNats "chat-notify-be/pkg/nats"

	"gorm.io/gorm"
)

type Container struct {
	NotificationHandler *handler.NotificationHandler
	NotificationService *service.NotificationService

	Hub    *realtime.Hub
	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Realtime domain logs go to their own file to keep main logs clean.
	rtLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)

	// Event bus: NATS JetStream when configured, in-process watermill
	// gochannel otherwise. The registry is single-process either way.
	var (
		publisher  events.Publisher
		subscriber events.Subscriber
	)
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
		} else {
			publisher = natsPub
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS subscriber: %v", err)
		} else {
			subscriber = natsSub
		}
	}
	if publisher == nil || subscriber == nil {
		inproc := bus.NewGoChannelBus()
		publisher = inproc
		subscriber = inproc
		log.Println("[INFO] Using in-process event bus")
	}

	// Optional offline email channel
	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
		)
	}

	// Realtime core
	prefs := realtime.NewPreferenceStore()
	hub := realtime.NewHub(prefs, rtLogger)
	router := realtime.NewRouter(hub, prefs, rtLogger)

	// Notification domain
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, subscriber, hub, emailService, rtLogger)

	// Start the fan-out consumer
	go notifService.Start()

	notifHandler := handler.NewNotificationHandler(notifService, publisher, hub, router, rtLogger)

	return &Container{
		NotificationHandler: notifHandler,
		NotificationService: notifService,
		Hub:                 hub,
		Logger:              sysLogger,
	}
}
