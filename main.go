package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quillsync/quillsync/handlers"
	"github.com/quillsync/quillsync/internal/actor"
	"github.com/quillsync/quillsync/internal/authgate"
	"github.com/quillsync/quillsync/internal/config"
	"github.com/quillsync/quillsync/internal/database"
	"github.com/quillsync/quillsync/internal/document"
	docrepo "github.com/quillsync/quillsync/internal/document/repository"
	idxrepo "github.com/quillsync/quillsync/internal/index/repository"
	"github.com/quillsync/quillsync/internal/oidc"
	"github.com/quillsync/quillsync/pkg/logger"
	"github.com/quillsync/quillsync/pkg/metrics"
	"github.com/quillsync/quillsync/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v mongo=%v redis=%v", cfg.Auth.OIDCIssuer != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx := context.Background()

	r := gin.New()
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Errorf("panic recovered: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))

	// Connect to Redis early so the rate-limiter can use it when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Bearer-credential verifier chain: OIDC provider when an issuer is
	// configured, HS256 shared secret otherwise, and the claims-only insecure
	// verifier as an explicit opt-in for integration tests.
	var verifier middleware.Verifier
	if cfg.Auth.OIDCIssuer != "" && cfg.Auth.OIDCClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && cfg.Auth.JWTSecret != "" {
		verifier = authgate.NewHS256Verifier(cfg.Auth.JWTSecret)
		logger.Infof("using HS256 token verification")
	}
	if verifier == nil {
		if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
			logger.Warn("enabling insecure token verifier (integration mode)")
			verifier = oidc.NewInsecureVerifier()
		} else {
			logger.Fatalf("no token verifier configured: set OIDC_ISSUER, JWT_SECRET or ALLOW_INSECURE_TOKEN=true")
		}
	}

	// Storage: MongoDB when configured, with retry/backoff to tolerate
	// startup races; in-memory stores otherwise (single-process mode).
	limits := document.TagLimits{MaxLength: cfg.Limits.TagMaxLength, MaxCount: cfg.Limits.TagMaxCount}
	var docStore actor.DocumentStore = docrepo.NewMemoryRepo()
	var idxStore actor.IndexStore = idxrepo.NewMemoryRepo()
	mongoReady := cfg.MongoDB.URI == ""
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts, falling back to in-memory stores: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)
			docStore = docrepo.NewMongoRepo(db.Collection("documents"))
			idxStore = idxrepo.NewMongoRepo(db.Collection("indexes"))
			mongoReady = true
			logger.Infof("using MongoDB storage (database %s)", cfg.MongoDB.Database)
		}
	}

	docs := actor.NewDocumentRegistry(docStore, limits)
	idx := actor.NewIndexRegistry(idxStore, docs, limits)
	docs.BindIndex(idx)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness returns 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"storage": mongoReady,
			"auth":    verifier != nil,
			"redis":   true,
		}
		if cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
		}
		ready := deps["storage"] && deps["auth"] && deps["redis"]
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.RegisterDocumentRoutes(r, verifier, docs, idx)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting document sync service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
