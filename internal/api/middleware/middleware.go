// Package middleware provides HTTP middleware for the viewer server.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/idgen"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// Context keys set by the middleware
const (
	ContextKeyRequestID = "request_id"
	ContextKeyUsername  = "username"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLength = 64

// LoggerConfig holds the configuration for the Logger middleware
type LoggerConfig struct {
	// AccessLog logs successful requests at info level; failed requests are
	// always logged
	AccessLog bool
	// SkipPrefixes keeps health probes and static assets out of the access log
	SkipPrefixes []string
}

// Logger returns a middleware that logs HTTP requests.
// A nil cfg logs failed requests only.
func Logger(cfg *LoggerConfig) gin.HandlerFunc {
	var conf LoggerConfig
	if cfg != nil {
		conf = *cfg
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && (!conf.AccessLog || hasAnyPrefix(c.Request.URL.Path, conf.SkipPrefixes)) {
			return
		}

		fields := requestFields(c)
		fields = append(fields,
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		log := logger.Named("http")
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request", fields...)
		}
	}
}

// requestFields describes the request for log entries
func requestFields(c *gin.Context) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
	}
	if q := c.Request.URL.RawQuery; q != "" {
		fields = append(fields, zap.String("query", q))
	}
	if ua := c.Request.UserAgent(); ua != "" {
		fields = append(fields, zap.String("user_agent", ua))
	}
	if id := c.GetString(ContextKeyRequestID); id != "" {
		fields = append(fields, zap.String(ContextKeyRequestID, id))
	}
	// page routes name the report :report, API routes :id
	for _, name := range []string{"report", "id"} {
		if v := c.Param(name); v != "" {
			fields = append(fields, zap.String(logger.FieldReportID, v))
			break
		}
	}
	return fields
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Recovery returns a middleware that turns panics into 500 responses
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := append(requestFields(c),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			logger.Error("Panic recovered", fields...)

			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c,
				errors.ErrCodeInternal, "Internal server error", nil))
		}()
		c.Next()
	}
}

// CORS returns a middleware that allows cross-origin reads and uploads from
// the listed origins. "*" allows every origin without credentials.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[strings.TrimSuffix(origin, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		ok := origin != "" && (allowAll || allowed[origin])

		if ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+HeaderRequestID)
			h.Set("Access-Control-Expose-Headers", "Content-Disposition, "+HeaderRequestID)
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
			if allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			if ok {
				c.AbortWithStatus(http.StatusNoContent)
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

// RequestID returns a middleware that tags every request with an id, taken
// from the X-Request-ID header when it is well formed
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !validRequestID(id) {
			id = idgen.NewRequestID()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// Metrics returns a middleware that records request counts and durations.
// Requests are labelled by route pattern to keep the label set bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.GetMetrics().RecordHTTPRequest(c.Request.Context(), c.Request.Method, route,
			c.Writer.Status(), time.Since(start).Seconds())
	}
}

// ErrorHandler returns a middleware that renders errors added with c.Error
// as JSON. Outside debug mode messages of internal errors are hidden.
func ErrorHandler(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// handlers that already wrote a response keep it
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.ErrInternal(err.Error(), err)
		}
		status := appErr.HTTPStatus()

		message := appErr.Message
		if status >= http.StatusInternalServerError && !debugMode {
			message = "Internal server error"
		}
		var details any
		if debugMode {
			details = appErr.Details
		}
		c.JSON(status, errorBody(c, appErr.Code, message, details))
	}
}

// errorBody is the JSON shape of every API error
func errorBody(c *gin.Context, code errors.ErrorCode, message string, details any) gin.H {
	body := gin.H{"code": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	if id := c.GetString(ContextKeyRequestID); id != "" {
		body[ContextKeyRequestID] = id
	}
	return body
}

// TokenValidator checks a bearer token and returns its user
type TokenValidator interface {
	ValidateToken(token string) (username string, err error)
}

// JWTAuth returns a middleware that requires a valid bearer token and
// stores its user under ContextKeyUsername
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(c,
				errors.ErrCodeUnauthorized, "Authorization header required", nil))
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(c,
				errors.ErrCodeUnauthorized, "Invalid authorization format", nil))
			return
		}

		username, err := validator.ValidateToken(token)
		if err != nil {
			logger.Debug("Rejected bearer token", zap.Error(err))
			code := errors.ErrCodeTokenInvalid
			if errors.HasCode(err, errors.ErrCodeTokenExpired) {
				code = errors.ErrCodeTokenExpired
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(c, code, "Invalid or expired token", nil))
			return
		}

		c.Set(ContextKeyUsername, username)
		c.Next()
	}
}
