package ports

import (
	"context"

	"simplesurvey/domain/dataset"
)

// ResponseSource loads raw survey responses into a dataset. Columns maps
// raw header text to schema column ids before the schema is checked.
type ResponseSource interface {
	Load(ctx context.Context, schema dataset.Schema, columns map[string]string) (*dataset.Dataset, error)
}
