// Package redis stores model artifacts as plain string keys in Redis or Valkey.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cohortlens/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName = "cohortlens"

	readyBackoffMin = 50 * time.Millisecond
	readyBackoffMax = 2 * time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Standalone skips CLUSTER SLOTS discovery for single-node deployments.
	Standalone bool
}

// Store implements db.Store via rueidis. Artifacts are small and written
// rarely, so client-side caching stays off.
type Store struct {
	client rueidis.Client
}

// NewStore creates a rueidis-backed store. It does not wait for the server.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       cfg.Addrs,
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ClientName:        clientName,
		ForceSingleClient: cfg.Standalone,
		DisableCache:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create rueidis client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreForTest wraps an existing client, usually a rueidis mock.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately, then retries with doubling backoff until
// the server answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := readyBackoffMin
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w (last: %w)", ctx.Err(), lastErr)
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, readyBackoffMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
