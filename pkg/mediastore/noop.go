package mediastore

import (
	"context"
	"log/slog"
)

// NoopNotifier is a no-operation implementation of Notifier.
// Useful when no downstream observers exist or for testing.
type NoopNotifier struct{}

// NewNoopNotifier creates a new no-operation notifier
func NewNoopNotifier() Notifier {
	return &NoopNotifier{}
}

// Publish does nothing and returns nil
func (n *NoopNotifier) Publish(ctx context.Context, entityID string, kind EventKind, media *Media) error {
	return nil
}

// AllowAllAuthorizer approves every request. Useful for library embedding
// where authorization happens upstream, and for testing.
type AllowAllAuthorizer struct{}

// NewAllowAllAuthorizer creates a new allow-all authorizer
func NewAllowAllAuthorizer() Authorizer {
	return &AllowAllAuthorizer{}
}

// VerifyRequest always allows
func (a *AllowAllAuthorizer) VerifyRequest(ctx context.Context, actor, credential, resourcePath string) (bool, error) {
	return true, nil
}

// LoggingNotifier logs each change event but takes no other action.
// Useful for development and debugging.
type LoggingNotifier struct {
	log *slog.Logger
}

// NewLoggingNotifier creates a new logging notifier
func NewLoggingNotifier(log *slog.Logger) Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingNotifier{log: log}
}

// Publish logs the change event
func (l *LoggingNotifier) Publish(ctx context.Context, entityID string, kind EventKind, media *Media) error {
	l.log.Info("media change",
		"entity_id", entityID,
		"event", string(kind),
		"media_id", media.ID,
		"mime_type", media.MimeType)
	return nil
}
