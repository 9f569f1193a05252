package sources

import (
	"context"
	"fmt"

	"pharmacy-intelligence-service/internal/models"
)

// Reader pulls raw stock rows from an external pharmacy system. Row shape is
// whatever the configured query returns; the field mapper normalizes it later.
type Reader interface {
	Pull(ctx context.Context, source *models.SourceConfig) ([]models.RawRow, error)
}

// UnsupportedSourceKindError indicates a source kind no reader implements
type UnsupportedSourceKindError struct {
	Kind string
}

func (e *UnsupportedSourceKindError) Error() string {
	return fmt.Sprintf("unsupported source dbKind: %s", e.Kind)
}
