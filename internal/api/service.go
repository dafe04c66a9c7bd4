package api

import (
	"context"

	"sceneforge/internal/queue"
)

// HistoryService shapes history store data for transport.
type HistoryService struct {
	store *queue.Store
}

// NewHistoryService wraps a store.
func NewHistoryService(store *queue.Store) *HistoryService {
	return &HistoryService{store: store}
}

// List returns recent renders, newest first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]HistoryRecord, error) {
	records, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryRecord, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out, nil
}

// Get returns one record by id.
func (s *HistoryService) Get(ctx context.Context, id string) (HistoryRecord, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return HistoryRecord{}, err
	}
	return FromRecord(record), nil
}

// FromRecord converts a store record into its transport form.
func FromRecord(record *queue.Record) HistoryRecord {
	return HistoryRecord{
		ID:              record.ID,
		Scene:           record.Scene,
		Quality:         record.Quality,
		Status:          string(record.Status),
		ErrorMessage:    record.ErrorMessage,
		ArtifactPath:    record.ArtifactPath,
		ArtifactSize:    record.ArtifactSize,
		TotalAnimations: record.TotalAnimations,
		DurationSeconds: record.Duration.Seconds(),
		Log:             record.Log,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}
