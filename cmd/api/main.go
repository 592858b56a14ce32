package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentmonitor/internal/auth"
	"studentmonitor/internal/config"
	"studentmonitor/internal/dashboard"
	"studentmonitor/internal/datefmt"
	"studentmonitor/internal/gateway"
	"studentmonitor/internal/httpmiddleware"
	"studentmonitor/internal/roster"
	"studentmonitor/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	if cfg.GatewayUsername == "" || cfg.GatewayPassword == "" {
		log.Println("warning: gateway credentials not set (GATEWAY_USERNAME / GATEWAY_PASSWORD)")
	}

	gw := gateway.New(cfg.GatewayBaseURL, cfg.GatewayUsername, cfg.GatewayPassword, cfg.GatewayTimeout)
	dashVM := dashboard.New(gw)
	rosterVM := roster.New(gw)

	var redisClient *store.Redis
	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, "monitor:ratelimit", cfg.RateLimitPerMin, time.Minute)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		resp := gin.H{"status": "ok"}
		if redisClient != nil {
			healthy := redisClient.Healthy(c.Request.Context())
			resp["redis"] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, resp)
	})

	r.POST("/v1/session", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if cfg.AdminPassword == "" || req.Username != cfg.AdminUsername || req.Password != cfg.AdminPassword {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		tokens, err := auth.Issue(req.Username, "staff", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	staff := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	staff.POST("/dashboard/load", func(c *gin.Context) {
		dashVM.Load(c.Request.Context())
		c.JSON(http.StatusOK, dashboardResponse(dashVM.Snapshot()))
	})

	staff.GET("/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, dashboardResponse(dashVM.Snapshot()))
	})

	staff.GET("/dashboard/search/trainers", func(c *gin.Context) {
		dashVM.SearchTrainers(c.Request.Context(), c.Query("query"))
		c.JSON(http.StatusOK, dashboardResponse(dashVM.Snapshot()))
	})

	staff.GET("/dashboard/search/students", func(c *gin.Context) {
		dashVM.SearchStudents(c.Request.Context(), c.Query("query"))
		c.JSON(http.StatusAccepted, gin.H{"status": "searched"})
	})

	staff.POST("/roster/select", func(c *gin.Context) {
		var req struct {
			TrainerID int64 `json:"trainer_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rosterVM.SelectTrainer(c.Request.Context(), req.TrainerID); err != nil {
			c.JSON(http.StatusBadGateway, rosterVM.Snapshot())
			return
		}
		c.JSON(http.StatusOK, rosterVM.Snapshot())
	})

	staff.GET("/roster", func(c *gin.Context) {
		c.JSON(http.StatusOK, rosterVM.Snapshot())
	})

	staff.POST("/roster/students/:id", func(c *gin.Context) {
		studentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
			return
		}
		var req struct {
			Field string `json:"field" binding:"required"`
			Value string `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rosterVM.UpdateField(c.Request.Context(), studentID, req.Field, req.Value); err != nil {
			var fmtErr *datefmt.FormatError
			if errors.As(err, &fmtErr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rosterVM.Snapshot())
	})

	staff.POST("/roster/students/:id/metadata", func(c *gin.Context) {
		studentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
			return
		}
		var metadata map[string]interface{}
		if err := c.ShouldBindJSON(&metadata); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := gw.UpdateUserMetadata(c.Request.Context(), studentID, metadata); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

type trainerRow struct {
	gateway.Trainer
	UnutilizedTime float64 `json:"unutilized_time"`
}

// dashboardResponse augments the snapshot with the derived unutilized-time
// column; it is never stored on the trainer itself.
func dashboardResponse(snap dashboard.Snapshot) gin.H {
	rows := make([]trainerRow, len(snap.Trainers))
	for i, t := range snap.Trainers {
		rows[i] = trainerRow{Trainer: t, UnutilizedTime: t.UnutilizedTime()}
	}
	return gin.H{
		"state":              snap.State,
		"summary":            snap.Summary,
		"room_data":          snap.RoomData,
		"trainers":           rows,
		"hold_request_count": snap.HoldRequestCount,
		"errors":             snap.Errors,
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
