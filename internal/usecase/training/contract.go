package training

import (
	"context"

	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// Saver persists trained artifacts in one atomic write.
type Saver interface {
	SaveAll(ctx context.Context, sets []centroid.Set, reg *regression.Model) error
}

// Publisher swaps the trained models into the live model context.
type Publisher interface {
	Current() (*models.Snapshot, error)
	Publish(s *models.Snapshot) error
}
