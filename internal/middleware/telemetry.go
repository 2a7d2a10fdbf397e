package middleware

import (
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a span per request with otelgin
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// SpanAttributesMiddleware tags the request span with the tenant, the
// user and any handler errors. Register it after the auth middleware.
func SpanAttributesMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if value, ok := c.Get(util.ContextCommunityKey); ok {
			if community, ok := value.(*models.Community); ok {
				span.SetAttributes(
					attribute.String("community.id", community.ID),
					attribute.String("community.domain", community.Domain),
				)
			}
		}
		if userID := c.GetString(util.ContextUserIDKey); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}

		c.Next()

		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
