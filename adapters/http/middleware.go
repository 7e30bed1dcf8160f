package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/internal/application/service"
	authUC "github.com/khoahotran/wellness-api/internal/application/usecase/auth"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const (
	GinContextKeyUserID = "userID"

	// HeaderAuthToken is what the mobile client sends.
	HeaderAuthToken = "x-auth-token"
)

// tokenFromRequest prefers x-auth-token and falls back to a bearer
// Authorization header.
func tokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(HeaderAuthToken)); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware verifies the session token. denylist may be nil, in which
// case logged out tokens stay valid until they expire.
func AuthMiddleware(verifyUC *authUC.VerifyUseCase, denylist service.TokenDenylist, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := verifyUC.Execute(c.Request.Context(), tokenFromRequest(c))
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		if denylist != nil && out.TokenID != "" {
			revoked, err := denylist.IsRevoked(c.Request.Context(), out.TokenID)
			if err != nil {
				// A broken denylist must not lock every user out.
				log.Error("Failed to check token denylist", err, zap.String("user_id", out.UserID.String()))
			} else if revoked {
				c.Error(apperror.NewUnauthenticated("Token has been revoked", nil))
				c.Abort()
				return
			}
		}

		c.Set(GinContextKeyUserID, out.UserID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userIDKey{}, out.UserID))

		c.Next()
	}
}

type userIDKey struct{}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return userID, ok
}

func GetUserIDFromGinContext(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(GinContextKeyUserID)
	if !ok {
		return uuid.Nil, false
	}
	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	return userUUID, true
}

// ErrorMiddleware renders the last error a handler attached. Causes are
// logged and never sent to the client.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, body := apperror.ToResponse(err)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
		}
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, fields...)
		} else {
			log.Warn("Request rejected", append(fields, zap.String("reason", err.Error()))...)
		}

		if !c.Writer.Written() {
			c.JSON(status, body)
		}
	}
}

var httpTracer = otel.Tracer("http_adapter")

// RequestLogger opens the server span for the request and logs it once it
// completes. Use case spans started from the request context nest under it.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := httpTracer.Start(ctx, c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.method", c.Request.Method)),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		log.Info("HTTP request", fields...)
	}
}

// Recovery turns a panic into the standard internal error body.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Panic recovered", nil, zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		status, body := apperror.ToResponse(apperror.NewInternal("panic", nil))
		c.AbortWithStatusJSON(status, body)
	})
}
