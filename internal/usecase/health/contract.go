package health

import (
	"context"

	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// DBPinger checks artifact store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker reports the published model snapshot.
type ModelChecker interface {
	Current() (*models.Snapshot, error)
}
