package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// PublicationStorage implements the PublicationStorage interface for Badger
type PublicationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPublicationStorage creates a new PublicationStorage instance
func NewPublicationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PublicationStorage {
	return &PublicationStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a publication by announcement ID
func (s *PublicationStorage) Get(ctx context.Context, id string) (*models.ResultPublication, error) {
	var pub models.ResultPublication
	err := s.db.Store().Get(id, &pub)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}

	return &pub, nil
}

// Upsert inserts or updates a publication
func (s *PublicationStorage) Upsert(ctx context.Context, pub *models.ResultPublication) error {
	if err := s.db.Store().Upsert(pub.ID, pub); err != nil {
		return fmt.Errorf("failed to upsert publication: %w", err)
	}
	return nil
}

// ListByStatus returns publications in a given state, newest first
func (s *PublicationStorage) ListByStatus(ctx context.Context, status string) ([]*models.ResultPublication, error) {
	var pubs []models.ResultPublication
	err := s.db.Store().Find(&pubs,
		badgerhold.Where("Status").Eq(status).SortBy("AnnouncedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	result := make([]*models.ResultPublication, len(pubs))
	for i := range pubs {
		result[i] = &pubs[i]
	}
	return result, nil
}
