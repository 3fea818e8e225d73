package service

import (
	"context"
	"log/slog"
	"time"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID, email string, roles []string) (string, time.Time, error)
}

// minPasswordLength applies to passwords chosen by the caller.
const minPasswordLength = 8

func logPublishError(ctx context.Context, logger *slog.Logger, topic, aggregateID string, err error) {
	logger.ErrorContext(ctx, "failed to publish "+topic+" event",
		slog.String("aggregate_id", aggregateID),
		slog.String("error", err.Error()),
	)
}
