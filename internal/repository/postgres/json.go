package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// marshalJSON encodes v for a JSONB column. Nil maps and pointers become SQL NULL.
func marshalJSON[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func unmarshalJSONMap(data []byte) (map[string]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mapUniqueViolation turns a unique violation into an AlreadyExists error.
func mapUniqueViolation(err error, resource, field, value string) error {
	if isUniqueViolation(err) {
		return apperrors.AlreadyExists(resource, field, value)
	}
	return err
}

// mapForeignKeyViolation turns a delete blocked by a RESTRICT reference into
// a Conflict carrying message.
func mapForeignKeyViolation(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return apperrors.Conflict(message)
	}
	return err
}
