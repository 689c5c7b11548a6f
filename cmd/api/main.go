// cmd/api/main.go
// Main entry point: bootstraps the discovery & matching engine and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/auth"
	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/common/database"
	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/config"
	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/discovery"
)

var startTime = time.Now()

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting NearMatch Discovery Engine")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional)
	log.Println("📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without presence throttling", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 5. Run database migrations
	log.Println("🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations:", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Initialize the discovery engine
	log.Println("🧭 Step 6: Initializing discovery engine...")

	repo := discovery.NewPostgresRepository(db)

	hub := discovery.NewHub()
	go hub.Run()

	engineCfg := discovery.Config{
		Filter: discovery.FilterConfig{
			DefaultRadiusKM: cfg.DefaultRadiusKM,
			MaxRadiusKM:     cfg.MaxRadiusKM,
			SkipCooldown:    cfg.SkipCooldown,
			OnlineWindow:    cfg.OnlineWindow,
			MinAge:          cfg.MinAge,
			MaxAge:          cfg.MaxAge,
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		},
		BoostMinDuration: cfg.BoostMinDuration,
		BoostMaxDuration: cfg.BoostMaxDuration,
	}

	engineService := discovery.NewService(repo, hub, engineCfg)
	engineHandler := discovery.NewHandler(engineService)

	presence := discovery.NewPresenceTracker(redisClient, repo, time.Minute)

	adminService := discovery.NewAdminService(db, repo)

	log.Println("✅ Discovery engine initialized")

	// 7. Start maintenance scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := discovery.NewScheduler(engineService, cfg.SkipPruneInterval, cfg.BoostSweepInterval)
	scheduler.Start(ctx)
	log.Println("✅ Maintenance scheduler started")

	// 8. Setup routes
	log.Println("🛣️  Step 8: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
	discovery.RegisterRoutes(router, engineHandler, hub, authMiddleware, presence)

	adminRouter := router.PathPrefix("/api/v1/admin").Subrouter()
	adminRouter.Use(authMiddleware.Authenticate)
	adminRouter.HandleFunc("/stats", adminService.StatsHandler).Methods("GET")

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	log.Println("✅ Routes registered")

	// 9. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("⚠️  Shutdown signal received...")

	hub.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Middleware functions

// requestIDMiddleware tags every request with an id for log correlation
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), "requestID", requestID)))
	})
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID, _ := r.Context().Value("requestID").(string)
		log.Printf("→ %s %s [%s] from %s", r.Method, r.RequestURI, requestID, r.RemoteAddr)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("← %s %s [%s] [%d] %v", r.Method, r.RequestURI, requestID, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(100) UNIQUE NOT NULL,
            display_name VARCHAR(100) NOT NULL DEFAULT '',
            gender VARCHAR(20) NOT NULL DEFAULT 'other',
            birth_date DATE NOT NULL,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            preferred_gender VARCHAR(20) NOT NULL DEFAULT 'both',
            preferred_min_age INTEGER NOT NULL DEFAULT 18,
            preferred_max_age INTEGER NOT NULL DEFAULT 100,
            preferred_radius_km DOUBLE PRECISION NOT NULL DEFAULT 50,
            is_banned BOOLEAN NOT NULL DEFAULT FALSE,
            role VARCHAR(20) NOT NULL DEFAULT 'user',
            onboarding_complete BOOLEAN NOT NULL DEFAULT FALSE,
            boosted_until TIMESTAMP WITH TIME ZONE,
            last_active TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		// The primary key doubles as the swipe state machine: one decision
		// per (seeker, target), never rewritten
		`CREATE TABLE IF NOT EXISTS swipes (
            seeker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            target_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            action VARCHAR(10) NOT NULL CHECK (action IN ('like', 'dislike')),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (seeker_id, target_id)
        )`,

		`CREATE TABLE IF NOT EXISTS temp_skips (
            id SERIAL PRIMARY KEY,
            seeker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            target_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            skipped_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		// user1_id < user2_id always; the unique pair key is what makes
		// concurrent reciprocal likes collapse into a single match
		`CREATE TABLE IF NOT EXISTS matches (
            id SERIAL PRIMARY KEY,
            user1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            matched_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            last_message_at TIMESTAMP WITH TIME ZONE,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            unmatched_by INTEGER REFERENCES users(id),
            unmatched_at TIMESTAMP WITH TIME ZONE,
            CONSTRAINT unique_match_pair UNIQUE (user1_id, user2_id),
            CONSTRAINT ordered_match_pair CHECK (user1_id < user2_id)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_users_discovery
            ON users (is_banned, onboarding_complete, gender, birth_date)`,
		`CREATE INDEX IF NOT EXISTS idx_users_last_active ON users (last_active)`,
		`CREATE INDEX IF NOT EXISTS idx_swipes_target ON swipes (target_id, seeker_id)`,
		`CREATE INDEX IF NOT EXISTS idx_temp_skips_seeker ON temp_skips (seeker_id, skipped_at)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user1 ON matches (user1_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user2 ON matches (user2_id)`,
	}

	for i, migration := range migrations {
		log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
