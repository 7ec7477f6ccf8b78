package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"portal-service/internal/ai"
	"portal-service/internal/config"
	"portal-service/internal/db"
	"portal-service/internal/engine"
	"portal-service/internal/handlers"
	"portal-service/internal/identity"
	"portal-service/internal/middleware"
	"portal-service/internal/notifications"
	"portal-service/internal/observability"
	"portal-service/internal/push"
	"portal-service/internal/rabbitmq"
	"portal-service/internal/repositories"
	"portal-service/internal/telemetry"
	"portal-service/internal/ws"
)

const auditRoutingKey = "audit.portal"

func main() {
	configPath := pflag.String("config", "", "path to the portal YAML config")
	envFile := pflag.String("env-file", ".env", "path to a .env file")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.Load(*envFile, *configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	userRepo := repositories.NewUserRepo(database)
	activityRepo := repositories.NewActivityRepo(database)

	if err := roomRepo.EnsureSystemRooms(ctx, cfg.Departments); err != nil {
		log.Fatalf("failed to seed system rooms: %v", err)
	}

	sessions, err := identity.NewSessionStore(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer sessions.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Environment)
	activityLogger := telemetry.NewActivityLogger(activityRepo, auditEmitter)
	pushNotifier := push.NewAMQPNotifier(publisher)
	aiBridge := ai.NewBridge(cfg.AIEndpoint, cfg.AITimeout)

	hub := ws.NewHub()

	eventEngine := engine.New(engine.Deps{
		Rooms:        roomRepo,
		Messages:     messageRepo,
		Users:        userRepo,
		Fanout:       hub,
		AI:           aiBridge,
		Push:         pushNotifier,
		Activity:     activityLogger,
		AIReplyFirst: cfg.AIReplyFirst,
	})
	notificationService := notifications.NewService(notificationRepo, userRepo, hub, pushNotifier, activityLogger)

	roomHandler := handlers.NewRoomHandler(roomRepo, messageRepo, activityLogger, cfg.Departments)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	userHandler := handlers.NewUserHandler(userRepo)
	wsHandler := ws.NewHandler(hub, sessions, eventEngine, ws.Options{
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventBurst:      cfg.WSEventBurst,
		SendBuffer:      cfg.WSSendBuffer,
	})

	router := gin.New()

	// middlewares
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := sessions.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/departments", roomHandler.ListDepartments)

	api := router.Group("/api", middleware.AuthMiddleware(sessions))
	api.GET("/me", roomHandler.Me)
	api.GET("/users/:username", userHandler.GetProfile)
	api.GET("/rooms", roomHandler.ListRooms)
	api.POST("/rooms", roomHandler.CreateRoom)
	api.DELETE("/rooms/:room_id", roomHandler.DeleteRoom)
	api.GET("/messages/:room_id", roomHandler.GetMessages)

	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/post", notificationHandler.Post)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.POST("/notifications/:id/react", notificationHandler.React)
	api.DELETE("/notifications/:id", notificationHandler.Delete)

	router.GET("/ws", wsHandler.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.Printf("portal service listening port=%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
