package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"
	"till-bot/pkg/apperror"

	"github.com/rs/zerolog"
)

// OperatorServiceImpl implements ports.OperatorService.
// The set is cached in memory and written through to the repository.
type OperatorServiceImpl struct {
	mu   sync.RWMutex
	ids  map[string]struct{}
	repo ports.OperatorRepository
	log  zerolog.Logger
}

// NewOperatorService creates an empty registry. Call Load before serving.
func NewOperatorService(repo ports.OperatorRepository, log zerolog.Logger) *OperatorServiceImpl {
	return &OperatorServiceImpl{
		ids:  make(map[string]struct{}),
		repo: repo,
		log:  log,
	}
}

// Load reads the persisted set. initialID is added only when the set is
// empty, so an operator removed on purpose stays removed across restarts.
func (s *OperatorServiceImpl) Load(ctx context.Context, initialID string) error {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return apperror.ErrPersistenceFailure(fmt.Errorf("list operators: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]struct{}, len(stored)+1)
	for _, raw := range stored {
		id, err := domain.NormalizeOperatorID(raw)
		if err != nil {
			s.log.Warn().Str("operator", raw).Msg("skipping malformed stored operator")
			continue
		}
		s.ids[id] = struct{}{}
	}

	if len(s.ids) == 0 {
		id, err := domain.NormalizeOperatorID(initialID)
		if err != nil {
			return apperror.ErrInvalidOperator()
		}
		if _, err := s.repo.Add(ctx, id); err != nil {
			return apperror.ErrPersistenceFailure(fmt.Errorf("seed operator: %w", err))
		}
		s.ids[id] = struct{}{}
		s.log.Info().Str("operator", id).Msg("seeded initial operator")
	}

	s.log.Info().Int("operators", len(s.ids)).Msg("operator registry loaded")
	return nil
}

// Authorize reports whether any of callerIDs is a registered operator.
// Empty and malformed identifiers are ignored.
func (s *OperatorServiceImpl) Authorize(_ context.Context, callerIDs ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, raw := range callerIDs {
		if raw == "" {
			continue
		}
		id, err := domain.NormalizeOperatorID(raw)
		if err != nil {
			continue
		}
		if _, ok := s.ids[id]; ok {
			return true
		}
	}
	return false
}

// AddOperator registers rawID. Adding a present operator is not an error.
func (s *OperatorServiceImpl) AddOperator(ctx context.Context, rawID string) (string, bool, error) {
	id, err := domain.NormalizeOperatorID(rawID)
	if err != nil {
		return "", false, apperror.ErrInvalidOperator()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return id, false, nil
	}
	if _, err := s.repo.Add(ctx, id); err != nil {
		return id, false, apperror.ErrPersistenceFailure(fmt.Errorf("add operator: %w", err))
	}
	s.ids[id] = struct{}{}

	s.log.Info().Str("operator", id).Msg("operator added")
	return id, true, nil
}

// RemoveOperator unregisters rawID. Removing an absent operator is not an
// error; removing the last one is.
func (s *OperatorServiceImpl) RemoveOperator(ctx context.Context, rawID string) (string, bool, error) {
	id, err := domain.NormalizeOperatorID(rawID)
	if err != nil {
		return "", false, apperror.ErrInvalidOperator()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; !ok {
		return id, false, nil
	}
	if len(s.ids) == 1 {
		return id, false, apperror.ErrLastOperator()
	}
	if _, err := s.repo.Remove(ctx, id); err != nil {
		return id, false, apperror.ErrPersistenceFailure(fmt.Errorf("remove operator: %w", err))
	}
	delete(s.ids, id)

	s.log.Info().Str("operator", id).Msg("operator removed")
	return id, true, nil
}

// List returns the operators sorted.
func (s *OperatorServiceImpl) List(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
