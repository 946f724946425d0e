package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"
)

// SnapshotService copies the fallback list views from the primary store into
// the snapshot store.
type SnapshotService interface {
	RefreshSnapshots(ctx context.Context) error
}

type snapshotService struct {
	registry repository.RegistryRepository
	dossiers repository.DossierRepository
	requests repository.RequestRepository
	store    SnapshotStore
}

func NewSnapshotService(
	registry repository.RegistryRepository,
	dossiers repository.DossierRepository,
	requests repository.RequestRepository,
	store SnapshotStore,
) SnapshotService {
	return &snapshotService{registry: registry, dossiers: dossiers, requests: requests, store: store}
}

// RefreshSnapshots saves every view it can read; one failing view does not
// stop the others.
func (s *snapshotService) RefreshSnapshots(ctx context.Context) error {
	var errs []error

	if units, err := s.registry.ListUnits(ctx); err != nil {
		errs = append(errs, fmt.Errorf("units: %w", err))
	} else {
		views := make([]any, 0, len(units))
		for i := range units {
			views = append(views, unitToResponse(&units[i]))
		}
		errs = append(errs, s.save(ctx, infra.SnapshotUnits, views))
	}

	if methods, err := s.registry.ListMethods(ctx); err != nil {
		errs = append(errs, fmt.Errorf("methods: %w", err))
	} else {
		views := make([]any, 0, len(methods))
		for i := range methods {
			views = append(views, methodToResponse(&methods[i]))
		}
		errs = append(errs, s.save(ctx, infra.SnapshotMethods, views))
	}

	if dossiers, err := s.dossiers.List(ctx, repository.DossierFilter{All: true}); err != nil {
		errs = append(errs, fmt.Errorf("dossiers: %w", err))
	} else if snaps, err := snapshotDossiers(ctx, s.requests, dossiers); err != nil {
		errs = append(errs, fmt.Errorf("dossiers: %w", err))
	} else {
		errs = append(errs, s.save(ctx, infra.SnapshotDossiers, snaps))
	}

	return errors.Join(errs...)
}

func (s *snapshotService) save(ctx context.Context, key string, v any) error {
	if err := s.store.Save(ctx, key, v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
