package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"insightQuestAPI/handlers"
	"insightQuestAPI/internal/config"
	"insightQuestAPI/internal/guard"
	"insightQuestAPI/internal/notification"
	quizengine "insightQuestAPI/internal/quiz"
	"insightQuestAPI/internal/store"
	"insightQuestAPI/internal/workers"
	"insightQuestAPI/middleware"
	"insightQuestAPI/services"

	_ "net/http/pprof"
)

var (
	cfg          *config.Config
	dataStore    store.Store
	healthCheck  func(ctx context.Context) error
	loginGuard   guard.LoginGuard
	notifier     notification.Notifier
	userService  *services.UserService
	taskService  *services.TaskService
	quizService  *services.QuizService
	chatService  *services.ChatService
	verifyTokens bool
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if cfg.ClerkSecretKey != "" {
		clerk.SetKey(cfg.ClerkSecretKey)
		verifyTokens = true
		log.Println("Clerk initialized successfully")
	} else {
		log.Println("Warning: CLERK_SECRET_KEY not set, session tokens are not verified")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dataStore, healthCheck = openStore(ctx)

	if cfg.UserCacheSize > 0 {
		cached, err := store.NewCachedUsers(dataStore, cfg.UserCacheSize)
		if err != nil {
			log.Fatal("Failed to create user cache:", err)
		}
		dataStore = cached
		log.Printf("User cache enabled with %d entries", cfg.UserCacheSize)
	}

	loginGuard = guard.NewMemory()
	if cfg.RedisAddr != "" {
		rg := guard.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err := rg.Ping(ctx); err != nil {
			log.Fatal("Failed to ping redis:", err)
		}
		loginGuard = rg
		log.Println("Daily login guard backed by Redis")
	}

	notifier = notification.LogNotifier{}
	if opt, err := notification.CredentialsOption(cfg.FirebaseCredentialsFile); err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else if fcm, err := notification.NewFCMService(ctx, opt); err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notifier = fcm
		log.Println("FCM Push Provider initialized successfully")
	}

	userService = services.NewUserService(dataStore, loginGuard, notifier)
	taskService = services.NewTaskService(dataStore, dataStore, nil, userService)
	quizService = services.NewQuizService(quizengine.NewEngine(dataStore, rand.New(rand.NewSource(time.Now().UnixNano()))), taskService)
	chatService = services.NewChatService(dataStore)

	middleware.InitPrometheus()
}

// openStore connects the configured backend and returns it with a health check.
func openStore(ctx context.Context) (store.Store, func(context.Context) error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("Successfully connected to Postgres")
		return pg, pg.Ping

	case config.BackendFirestore:
		opt, err := notification.CredentialsOption(cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Fatal("Firestore credentials: ", err)
		}
		fs, err := store.NewFirestore(ctx, cfg.FirebaseProjectID, opt)
		if err != nil {
			log.Fatal("Failed to connect to Firestore:", err)
		}
		log.Println("Successfully connected to Firestore")
		return fs, func(context.Context) error { return nil }
	}

	log.Println("Using in-memory store, data is lost on restart")
	return store.NewMemory(), func(context.Context) error { return nil }
}

func main() {
	defer dataStore.Close()

	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, userService)
	quizHandler := handlers.NewQuizHandler(quizService, userService)
	chatHandler := handlers.NewChatHandler(chatService, userService)

	limiter := middleware.NewRateLimiter(5, 30)
	walletLimiter := middleware.NewRateLimiter(5, 30)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go limiter.Cleanup(cleanupCtx)
	go walletLimiter.Cleanup(cleanupCtx)

	workers.StartCleanupWorker(cleanupCtx, 5*time.Minute, 30*time.Minute, map[string]workers.Sweeper{
		"wallet sessions": workers.SweeperFunc(userService.EvictIdleSessions),
		"quizzes":         workers.SweeperFunc(quizService.EvictIdle),
	})

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := healthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "store unavailable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "insightQuest-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/wallet/connect", middleware.TokenAuthMiddleware(verifyTokens)(http.HandlerFunc(userHandler.ConnectWallet))).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.WalletAuthMiddleware(verifyTokens))
	protected.Use(walletLimiter.WalletMiddleware)

	protected.HandleFunc("/wallet/disconnect", userHandler.DisconnectWallet).Methods("POST")

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/daily-login", userHandler.DailyLogin).Methods("POST")

	protected.HandleFunc("/tasks", taskHandler.GetTasks).Methods("GET")
	protected.HandleFunc("/tasks", taskHandler.CreateTask).Methods("POST")
	protected.HandleFunc("/tasks/board", taskHandler.GetBoard).Methods("GET")
	protected.HandleFunc("/tasks/{taskID}", taskHandler.GetTask).Methods("GET")
	protected.HandleFunc("/tasks/{taskID}", taskHandler.DeleteTask).Methods("DELETE")
	protected.HandleFunc("/tasks/{taskID}/complete", taskHandler.CompleteTask).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/verify", taskHandler.VerifyTask).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/share", taskHandler.ShareTask).Methods("POST")

	protected.HandleFunc("/tasks/{taskID}/quiz", quizHandler.StartQuiz).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/quiz", quizHandler.GetQuiz).Methods("GET")
	protected.HandleFunc("/tasks/{taskID}/quiz", quizHandler.AbandonQuiz).Methods("DELETE")
	protected.HandleFunc("/tasks/{taskID}/quiz/select", quizHandler.SelectOption).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/quiz/submit", quizHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/quiz/next", quizHandler.NextQuestion).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/quiz/attempts", quizHandler.GetAttempts).Methods("GET")

	protected.HandleFunc("/chat", chatHandler.GetHistory).Methods("GET")
	protected.HandleFunc("/chat", chatHandler.SaveMessage).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret", middleware.WalletHeader}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if rg, ok := loginGuard.(*guard.Redis); ok {
		rg.Close()
	}

	log.Println("Server shutdown complete")
}
