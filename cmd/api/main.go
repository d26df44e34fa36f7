package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"foundly/internal/adapter/api"
	"foundly/internal/adapter/api/handler"
	apimiddleware "foundly/internal/adapter/api/middleware"
	"foundly/internal/adapter/api/router"
	"foundly/internal/adapter/repository"
	"foundly/internal/infrastructure/notification"
	"foundly/internal/infrastructure/ratelimit"
	"foundly/internal/infrastructure/storage"
	"foundly/internal/infrastructure/websocket"
	"foundly/internal/usecase"
	"foundly/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.ServiceAccountPath)
		}
		opt = option.WithCredentialsFile(cfg.ServiceAccountPath)
	}

	var opts []option.ClientOption
	if opt != nil {
		opts = append(opts, opt)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Messaging: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	mediaStore, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, cfg.ServiceAccountPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer mediaStore.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	postRepo := repository.NewFirestorePostRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)

	dispatcher := notification.NewFCMDispatcher(messagingClient, userRepo)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)
	listener := websocket.NewConversationListener(firestoreClient, wsManager)

	conversationUseCase := usecase.NewConversationUseCase(conversationRepo, postRepo, userRepo)
	messageUseCase := usecase.NewMessageUseCase(conversationRepo, userRepo, dispatcher)
	resolutionUseCase := usecase.NewResolutionUseCase(conversationRepo, userRepo, mediaStore, dispatcher)
	requestUseCase := usecase.NewRequestUseCase(conversationRepo, mediaStore, messageUseCase, resolutionUseCase)

	wsEvents := websocket.NewClientEventHandler(wsManager, conversationUseCase)

	limiter := ratelimit.NewLimiter()
	limiter.StartSweeper()

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(limiter)

	conversationHandler := handler.NewConversationHandler(conversationUseCase)
	messageHandler := handler.NewMessageHandler(messageUseCase)
	requestHandler := handler.NewRequestHandler(requestUseCase)
	fileHandler := handler.NewFileHandler(mediaStore)
	wsHandler := handler.NewWebSocketHandler(wsManager, listener, wsEvents)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	router.SetupConversationRouter(e, conversationHandler, messageHandler, requestHandler, authMiddleware, rateLimitMiddleware)
	router.SetupFileRouter(e, fileHandler, authMiddleware, rateLimitMiddleware)
	router.SetupWebSocketRouter(e, wsHandler, authMiddleware)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
