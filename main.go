package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifeassistant/auth"
	"lifeassistant/backup"
	"lifeassistant/config"
	"lifeassistant/db"
	"lifeassistant/dishes"
	"lifeassistant/export"
	"lifeassistant/livesync"
	"lifeassistant/middleware"
	"lifeassistant/models"
	"lifeassistant/mq"
	"lifeassistant/ratelim"
	"lifeassistant/rdx"
	"lifeassistant/routes"
	"lifeassistant/schedule"
	"lifeassistant/settings"
	"lifeassistant/store"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// XSS, content sniffing, framing
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		// Referrer and permissions
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		// Prevent caching
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		log.Printf("%s %s from %s – %v", r.Method, r.URL.Path, r.RemoteAddr, duration)
	})
}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// openStore picks the persistence backend named by the config.
func openStore(ctx context.Context, cfg config.Config, pub store.Publisher) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Println("[Store] Using in-memory store; data is lost on restart")
		return store.NewMemory(pub), nil
	}
	conn, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	if err := conn.EnsureIndexes(ctx); err != nil {
		conn.Close(context.Background())
		return nil, err
	}
	log.Printf("[Store] Connected to MongoDB database %s", cfg.MongoDB)
	return store.NewMongo(conn, pub), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// redis is optional: it carries change events across instances and the
	// logout revocation list
	var (
		redisConn *redis.Client
		revoker   rdx.Revoker = rdx.NewMemory()
	)
	if cfg.RedisAddr != "" {
		redisConn, err = rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("❌ Redis error: %v", err)
		}
		revoker = &rdx.Redis{Conn: redisConn}
		log.Printf("[Redis] Connected to %s", cfg.RedisAddr)
	}

	var st store.Store
	hub := livesync.NewHub(func(ctx context.Context) ([]models.Dish, []models.ScheduleSlot, error) {
		dishes, err := st.ListDishes(ctx)
		if err != nil {
			return nil, nil, err
		}
		slots, err := st.ListSlots(ctx)
		return dishes, slots, err
	})
	go hub.Run()

	var pub store.Publisher = hub
	if redisConn != nil {
		pub = &mq.Emitter{Conn: redisConn}
		go mq.StartChangeRelay(ctx, redisConn, hub)
	}

	st, err = openStore(ctx, cfg, pub)
	if err != nil {
		log.Fatalf("❌ Store error: %v", err)
	}

	authMW := &middleware.Auth{Secret: cfg.JWTSecret, Revoked: revoker}
	authLimiter := ratelim.NewRateLimiter(30, 5)
	exportLimiter := ratelim.NewRateLimiter(30, 5)
	planner := schedule.NewPlanner(st, st)
	catalog := dishes.NewCatalog(st, planner)

	router := httprouter.New()
	router.GET("/health", Index)
	routes.AddAuthRoutes(router, &auth.Handlers{Users: st, Auth: authMW, TokenTTL: cfg.TokenTTL}, authMW, authLimiter)
	routes.AddDishRoutes(router, &dishes.Handlers{Catalog: catalog}, authMW)
	routes.AddScheduleRoutes(router, &schedule.Handlers{Planner: planner}, authMW)
	routes.AddExportRoutes(router, &export.Handlers{Dishes: st, Slots: st, Settings: st}, authMW, exportLimiter)
	routes.AddSettingsRoutes(router, &settings.Handlers{Store: st}, authMW)
	routes.AddBackupRoutes(router, &backup.Handlers{Dishes: st, Slots: st}, authMW, exportLimiter)
	routes.AddSyncRoutes(router, hub, authMW, livesync.NewUpgrader(cfg.AllowedOrigins))

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Shutting down sync hub...")
		stop()
		hub.Stop()
	})

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Printf("[Store] Close error: %v", err)
	}
	if redisConn != nil {
		redisConn.Close()
	}

	log.Println("✅ Server stopped cleanly")
}
