package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chat-shell/internal/metrics"
	"chat-shell/internal/service"
)

const requestIDHeader = "X-Request-ID"

// NewRouter configura el router de Gin con middlewares y rutas base.
// jwtSvc es opcional: sin él no se expone /auth/me.
// ping, si no es nil, se consulta en /healthz (p.ej. la base de datos).
func NewRouter(
	logger *zap.Logger,
	m *metrics.Metrics,
	chatH *ChatHandler,
	authH *AuthHandler,
	jwtSvc *service.JWTService,
	ping func(ctx context.Context) error,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: request id, logging, métricas, recovery y JSON content-type.
	r.Use(
		requestIDMiddleware(),
		zapLoggerMiddleware(logger),
		metricsMiddleware(m),
		gin.Recovery(),
		jsonContentTypeMiddleware(),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	chat := r.Group("/chat")
	chat.GET("/view", chatH.GetView)
	chat.POST("/conversations", chatH.CreateConversation)
	chat.GET("/conversations/:id", chatH.LoadConversation)
	chat.DELETE("/conversations", chatH.ClearAll)
	chat.POST("/messages", chatH.PostMessage)
	chat.POST("/examples", chatH.PostExample)

	auth := r.Group("/auth")
	auth.GET("/state", authH.GetState)
	auth.GET("/login", authH.Login)
	auth.GET("/callback", authH.Callback)
	auth.POST("/logout", authH.Logout)
	auth.POST("/tab", authH.SwitchTab)
	auth.POST("/login", authH.HandleLogin)
	auth.POST("/register", authH.HandleRegister)
	auth.POST("/social/:provider", authH.HandleSocial)
	if jwtSvc != nil {
		auth.GET("/me", JWTAuthMiddleware(jwtSvc), authH.Me)
	}

	return r
}

// requestIDMiddleware propaga o genera X-Request-ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDHeader)),
		)
	}
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Request(route, strconv.Itoa(c.Writer.Status()))
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
