package storage

import (
	"context"
	"errors"

	"car_tracker/models"
)

// SnapshotSink receives append-only price observations for a completed search.
type SnapshotSink interface {
	SaveSnapshots(ctx context.Context, key models.SnapshotKey, fallbackCurrency string, items []models.NormalizedListing) error
}

type NopSink struct{}

func (NopSink) SaveSnapshots(context.Context, models.SnapshotKey, string, []models.NormalizedListing) error {
	return nil
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []SnapshotSink

func (m MultiSink) SaveSnapshots(ctx context.Context, key models.SnapshotKey, currency string, items []models.NormalizedListing) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.SaveSnapshots(ctx, key, currency, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
