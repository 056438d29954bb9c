package analysis

import (
	"context"

	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// ModelSource yields the model snapshot for one request.
type ModelSource interface {
	Get(ctx context.Context) (*models.Snapshot, error)
}
