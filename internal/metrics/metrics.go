// Package metrics keeps an optional SQLite history of controller transitions.
package metrics

import (
	"context"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
)

type service struct {
	repo Repository
}

type noopRecorder struct{}

// NewRecorder returns a SQLite-backed recorder, or a no-op one when cfg is
// disabled.
func NewRecorder(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Transition history disabled")
		return noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &service{repo: repo}, nil
}

// NewRecorderWithRepository wraps an existing repository.
func NewRecorderWithRepository(repo Repository) Recorder {
	return &service{repo: repo}
}

func (s *service) Record(_ context.Context, t *Transition) error {
	errFactory := errors.New()

	if t == nil || t.To == "" {
		return errFactory.New(ErrInvalidTransition)
	}

	if err := s.repo.Insert(t); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func (*service) Enabled() bool {
	return true
}

func (noopRecorder) Record(context.Context, *Transition) error { return nil }
func (noopRecorder) Close() error                              { return nil }
func (noopRecorder) Enabled() bool                             { return false }
