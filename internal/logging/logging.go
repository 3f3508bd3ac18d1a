// Package logging is the operational log channel, built on log/slog.
// Everything goes to stderr so stdout stays free for command output; the
// REPL and the one-shot commands print their results there.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Level selects the minimum severity that gets logged.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the output encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var slogLevels = map[Level]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// ParseLevel maps a level name to a Level. Unknown names mean LevelInfo.
func ParseLevel(name string) Level {
	if level, ok := levelNames[name]; ok {
		return level
	}
	return LevelInfo
}

// ParseFormat maps a format name to a Format. Anything but "text" means
// JSON.
func ParseFormat(name string) Format {
	if name == "text" {
		return FormatText
	}
	return FormatJSON
}

// defaultLogger is the process-wide logger. A usable default exists
// before InitLogger runs so early failures still land somewhere.
var defaultLogger *slog.Logger

func init() {
	InitLogger(LevelInfo, FormatJSON)
}

// rfc3339Time rewrites the built-in time attribute to RFC3339.
func rfc3339Time(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
	}
	return a
}

// InitLogger replaces the process logger. It also becomes slog's default
// so stray slog calls in dependencies follow the same settings.
func InitLogger(level Level, format Format) {
	slogLevel, ok := slogLevels[level]
	if !ok {
		slogLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: slogLevel, ReplaceAttr: rfc3339Time}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the process logger.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// ContextKey is the type for context keys stored by this package.
type ContextKey string

// RequestIDKey carries the request ID through serve-mode handlers.
const RequestIDKey ContextKey = "request_id"

// WithRequestID stores a request ID on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID reads the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// LoggerFromContext returns the process logger, tagged with the request
// ID when the context carries one.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return defaultLogger.With("request_id", id)
	}
	return defaultLogger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

// DebugContext logs at debug level with context tags.
func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Debug(msg, args...)
}

// InfoContext logs at info level with context tags.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// WarnContext logs at warn level with context tags.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// ErrorContext logs at error level with context tags.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// The helpers below name the events the editor emits, so call sites
// stay one line and field names stay consistent.

// HTTPRequest logs one served request.
func HTTPRequest(method, path, remoteAddr string, statusCode int, duration time.Duration, args ...any) {
	defaultLogger.Info("http_request", append([]any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	}, args...)...)
}

// HTTPRequestContext logs one served request with context tags.
func HTTPRequestContext(ctx context.Context, method, path, remoteAddr string, statusCode int, duration time.Duration, args ...any) {
	LoggerFromContext(ctx).Info("http_request", append([]any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	}, args...)...)
}

// DocumentLoaded logs a successful document load.
func DocumentLoaded(path string, paragraphs, runs, tables int, args ...any) {
	defaultLogger.Info("document_loaded", append([]any{
		"path", path,
		"paragraphs", paragraphs,
		"runs", runs,
		"tables", tables,
	}, args...)...)
}

// DocumentSaved logs a successful document save.
func DocumentSaved(path, digest string, args ...any) {
	defaultLogger.Info("document_saved", append([]any{
		"path", path,
		"content_digest", digest,
	}, args...)...)
}

// CommandApplied logs one applied editing command.
func CommandApplied(command, target string, duration time.Duration, args ...any) {
	defaultLogger.Info("command_applied", append([]any{
		"command", command,
		"target", target,
		"duration_ms", duration.Milliseconds(),
	}, args...)...)
}

// CommandFailed logs one rejected or failed editing command.
func CommandFailed(command string, err error, args ...any) {
	defaultLogger.Error("command_failed", append([]any{
		"command", command,
		"error", err.Error(),
	}, args...)...)
}

// SecurityEvent logs security-relevant events such as rejected
// credentials.
func SecurityEvent(event, component string, args ...any) {
	defaultLogger.Warn("security_event", append([]any{
		"event", event,
		"component", component,
	}, args...)...)
}

// WebSocketEvent logs hub membership changes and drops.
func WebSocketEvent(event string, clientCount int, args ...any) {
	defaultLogger.Info("websocket_event", append([]any{
		"event", event,
		"client_count", clientCount,
	}, args...)...)
}

// ServerStartup logs serve-mode startup parameters.
func ServerStartup(serverType, protocol string, port int, args ...any) {
	defaultLogger.Info("server_startup", append([]any{
		"server_type", serverType,
		"protocol", protocol,
		"port", port,
	}, args...)...)
}
