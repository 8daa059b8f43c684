// Package httpapi exposes the assistant over HTTP: health and status probes
// and a message endpoint for non-Matrix clients.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/common/version"
	"github.com/bdobrica/Hisho/internal/hisho/engine"
)

// Handler is the part of the engine the API needs.
type Handler interface {
	Handle(ctx context.Context, userID, text string) (engine.Reply, error)
	Status() engine.Status
}

// Config configures the server.
type Config struct {
	Addr string
	// JWTSecret enables bearer authentication on the message endpoint. The
	// token's subject is the user id and overrides any user_id in the body.
	JWTSecret string
}

// Server serves the API.
type Server struct {
	cfg     Config
	handler Handler
	router  *gin.Engine
	started time.Time
}

type messageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text" binding:"required"`
}

type messageResponse struct {
	Reply string `json:"reply"`
	State string `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const userIDKey = "user_id"

// New builds the router.
func New(cfg Config, h Handler) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{cfg: cfg, handler: h, router: gin.New(), started: time.Now()}
	s.router.Use(recovery(), requestLog())

	s.router.GET("/health", s.health)
	s.router.GET("/status", s.status)
	v1 := s.router.Group("/api/v1")
	if cfg.JWTSecret != "" {
		v1.Use(bearerAuth([]byte(cfg.JWTSecret)))
	}
	v1.POST("/messages", s.message)
	return s
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("httpapi: serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit(),
	})
}

func (s *Server) status(c *gin.Context) {
	st := s.handler.Status()
	services := make([]string, len(st.Enabled))
	for i, svc := range st.Enabled {
		services[i] = string(svc)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"version":         version.Version,
		"commit":          version.Commit(),
		"build_time":      version.BuildTime,
		"started_at":      s.started,
		"uptime_seconds":  time.Since(s.started).Seconds(),
		"services":        services,
		"model":           st.Model,
		"active_sessions": st.Sessions,
	})
}

func (s *Server) message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be JSON with a non-empty text"})
		return
	}
	userID := req.UserID
	if sub := c.GetString(userIDKey); sub != "" {
		userID = sub
	}
	if strings.TrimSpace(userID) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	ctx := trace.WithTraceID(c.Request.Context(), trace.GenerateID())
	reply, err := s.handler.Handle(ctx, userID, req.Text)
	if err != nil {
		trace.Logger(ctx).Error("http message failed", "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, messageResponse{Reply: reply.Text, State: string(reply.State)})
}

// bearerAuth requires an HS256 token and stores its subject as the user id.
func bearerAuth(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "bearer token required"})
			return
		}
		token, err := parser.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "token has no subject"})
			return
		}
		c.Set(userIDKey, sub)
		c.Next()
	}
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("httpapi: panic recovered", "panic", r, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
		}()
		c.Next()
	}
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
