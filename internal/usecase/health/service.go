package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// ModelSource is where the published models came from, empty when none are loaded.
	ModelSource string
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	models ModelChecker
}

// New creates a Service. models can be nil.
func New(db DBPinger, models ModelChecker) *Service {
	return &Service{db: db, models: models}
}

// Check runs health checks against all components.
// Unhealthy means nothing can serve: the store is down and no models are loaded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	var source string

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.models != nil {
		if snap, err := s.models.Current(); err != nil {
			checks["models"] = CheckError
		} else {
			checks["models"] = CheckOK
			source = string(snap.Source)
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks, ModelSource: source}
}
