package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionBusy is returned when another request holds the session lock
var ErrSessionBusy = errors.New("session is locked by another request")

// Backend persists encoded sessions and per-session locks
type Backend interface {
	GetSession(ctx context.Context, id string) ([]byte, bool, error)
	SaveSession(ctx context.Context, id string, data []byte, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// Store loads and saves sessions
type Store struct {
	backend   Backend
	ttl       time.Duration
	lockTTL   time.Duration
	lockRetry time.Duration
	lockWait  time.Duration
	logger    *zap.Logger
}

// NewStore creates a new session store
func NewStore(backend Backend, ttl, lockTTL time.Duration) *Store {
	if ttl < time.Second {
		ttl = time.Second
	}
	if lockTTL < time.Second {
		lockTTL = time.Second
	}
	return &Store{
		backend:   backend,
		ttl:       ttl,
		lockTTL:   lockTTL,
		lockRetry: 25 * time.Millisecond,
		lockWait:  lockTTL,
		logger:    util.GetLogger(),
	}
}

// Load returns the stored session, or an empty one when id has none
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	data, ok, err := s.backend.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return New(id), nil
	}
	return decode(id, data)
}

// Save writes the session back when it was modified
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if !sess.Modified() {
		return nil
	}

	data, err := sess.encode()
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	if err := s.backend.SaveSession(ctx, sess.ID, data, s.ttl); err != nil {
		return err
	}

	sess.modified = false
	return nil
}

// Lock serializes mutations of one session across requests. The returned
// func releases the lock
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	lockKey := fmt.Sprintf("session:%s", id)
	token := uuid.New().String()
	deadline := time.Now().Add(s.lockWait)

	for {
		acquired, err := s.backend.AcquireLock(ctx, lockKey, token, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrSessionBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.lockRetry):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.backend.ReleaseLock(ctx, lockKey, token); err != nil {
			s.logger.Error("Failed to release session lock",
				zap.String("session_id", id),
				zap.Error(err))
		}
	}, nil
}
