package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/api/http"
	"github.com/maptech/stf-service/internal/api/http/handlers"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/chat"
	"github.com/maptech/stf-service/internal/config"
	"github.com/maptech/stf-service/internal/events"
	"github.com/maptech/stf-service/internal/observability"
	"github.com/maptech/stf-service/internal/persistence"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/internal/service"
	"github.com/maptech/stf-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), logger); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := postgres.PoolHandle()
	users := repository.NewUserRepository(pool)
	tickets := repository.NewTicketRepository(pool)
	sequences := repository.NewSequenceRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	messages := repository.NewMessageRepository(pool)
	escalations := repository.NewEscalationRepository(pool)
	surveys := repository.NewCSATRepository(pool)
	attachments := repository.NewAttachmentRepository(pool)
	tasks := repository.NewTaskRepository(pool)
	templates := repository.NewTemplateRepository(pool)
	serviceTypes := repository.NewServiceTypeRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewRedisMirrorDispatcher(
		events.NewInMemoryDispatcher(), redis.Client, cfg.Redis.EventChannel, logger)

	hub := chat.NewHub(cfg.Chat.SendBufferSize, logger, metrics)
	sessionManager := service.NewSessionManager(sessions, logger)
	chatService := service.NewChatService(service.ChatServiceDependencies{
		Messages:   messages,
		Sessions:   sessionManager,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketServiceDependencies{
		Tickets:     tickets,
		Users:       users,
		Sequences:   sequences,
		Escalations: escalations,
		Surveys:     surveys,
		Attachments: attachments,
		Tasks:       tasks,
		Templates:   templates,
		Sessions:    sessionManager,
		Chat:        chatService,
		Bus:         hub,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.App.Name)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	userService := service.NewUserService(service.UserServiceDependencies{
		Users:  users,
		Tokens: tokens,
		Hasher: hasher,
		Logger: logger,
	})
	recordService := service.NewRecordService(service.RecordServiceDependencies{
		ServiceTypes: serviceTypes,
		Templates:    templates,
	})

	notifications := service.NewNotificationService(256, logger)
	notifications.SubscribeTo(dispatcher)
	go worker.NewNotificationWorker(notifications, cfg.Notification, logger).Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
		ErrorHandler: http.NewErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(observability.RequestLogger(logger, metrics))

	authMiddleware := auth.NewMiddleware(tokens, users)
	http.RegisterRoutes(app, http.RouterDependencies{
		Auth:        authMiddleware,
		Health:      handlers.NewHealthHandler(postgres, redis, cfg.App.Version),
		Users:       handlers.NewUserHandler(userService),
		Tickets:     handlers.NewTicketHandler(ticketService),
		CSAT:        handlers.NewCSATHandler(ticketService),
		Escalations: handlers.NewEscalationHandler(ticketService),
		Records:     handlers.NewRecordHandler(recordService),
		Chat:        handlers.NewChatHandler(tickets, chatService, hub, cfg.Chat.WriteTimeout(), logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.App.Addr()))

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
