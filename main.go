package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"reclaim/internal/config"
	"reclaim/internal/db"
	"reclaim/internal/handlers"
	"reclaim/internal/inbox"
	"reclaim/internal/middleware"
	"reclaim/internal/observability"
	"reclaim/internal/rabbitmq"
	"reclaim/internal/repositories"
	"reclaim/internal/telemetry"
	"reclaim/internal/ws"
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.chat", cfg.ServiceName, cfg.Environment)
	notifier := telemetry.NewNotifier(publisher, "notifications.message_created", cfg.ServiceName)

	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)
	itemRepo := repositories.NewItemRepo(database)

	hub := ws.NewHub()
	inboxService := inbox.NewService(messageRepo, userRepo, itemRepo, hub, notifier, auditEmitter)

	inboxHandler := handlers.NewInboxHandler(inboxService, handlers.NewLocalImageStore(cfg.MediaDir, cfg.MaxImageBytes), cfg.MaxImageBytes)
	userHandler := handlers.NewUserHandler(userRepo)
	chatWS := ws.NewChatWebSocketHandler(hub, inboxService, cfg.AllowedOrigins)

	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxImageBytes
	router.Use(
		otelgin.Middleware(cfg.ServiceName),
		observability.RequestIDMiddleware(),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", observability.MetricsHandler())
	router.Static("/media", cfg.MediaDir)

	identity := middleware.Identity()

	router.GET("/inbox", identity, inboxHandler.GetInbox)
	router.POST("/inbox", identity, inboxHandler.PostMessage)
	router.POST("/inbox/clear", identity, inboxHandler.ClearConversation)
	router.GET("/inbox/unread", identity, inboxHandler.UnreadCount)

	router.POST("/internal/users", userHandler.ProvisionUser)

	router.GET("/ws/chat/:conversation_id", middleware.SocketIdentity(), chatWS.Handle)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID", "X-Request-ID", "X-Device-Id"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsHandler.Handler(router),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("http server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return shutdownTracing(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server error: %v", err)
	}
}
