package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/internal/service"
	"github.com/arkivet/document-api/pkg/config"
)

// fakeDocumentStore behaves like the repository: List filters on the
// requested status, so archiving a document removes it from the
// active-filtered result set.
type fakeDocumentStore struct {
	docs []models.DocumentMetadata
}

func (s *fakeDocumentStore) List(_ context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error) {
	var matched []models.DocumentMetadata
	for _, doc := range s.docs {
		if doc.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		matched = append(matched, doc)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *fakeDocumentStore) UpdateStatus(_ context.Context, tenantID, id string, status models.DocumentStatus, _ time.Time) error {
	for i := range s.docs {
		if s.docs[i].TenantID == tenantID && s.docs[i].ID == id {
			s.docs[i].Status = status
			return nil
		}
	}
	return nil
}

func sweepFixture(uploadedDaysAgo ...int) (*fakeDocumentStore, *service.PolicyService, time.Time) {
	now := time.Now().UTC()
	store := &fakeDocumentStore{}
	for i, days := range uploadedDaysAgo {
		store.docs = append(store.docs, models.DocumentMetadata{
			ID:         string(rune('a' + i)),
			TenantID:   "oslo-municipality",
			Status:     models.DocumentStatusActive,
			UploadedAt: now.AddDate(0, 0, -days),
		})
	}
	policy := service.NewPolicyService(config.ComplianceConfig{ArchiveAfterDays: 365, DeleteAfterDays: 2555})
	return store, policy, now
}

func TestSweepApplyArchivesEveryOverdueDocument(t *testing.T) {
	// All five documents are past the archive threshold. With a page
	// size smaller than the set, applied updates shrink the filtered
	// listing underneath the pagination.
	store, policy, now := sweepFixture(400, 500, 600, 700, 800)

	result, err := sweep(context.Background(), store, policy, io.Discard, "oslo-municipality", 2, true, now)
	require.NoError(t, err)

	assert.Equal(t, 5, result.ToArchive)
	assert.Equal(t, 5, result.Archived)
	for _, doc := range store.docs {
		assert.Equal(t, models.DocumentStatusArchived, doc.Status, "document %s should be archived", doc.ID)
	}
}

func TestSweepReportOnlyLeavesStatusUntouched(t *testing.T) {
	store, policy, now := sweepFixture(10, 400, 3000)

	result, err := sweep(context.Background(), store, policy, io.Discard, "oslo-municipality", 2, false, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ToArchive)
	assert.Equal(t, 1, result.ToDelete)
	assert.Zero(t, result.Archived)
	for _, doc := range store.docs {
		assert.Equal(t, models.DocumentStatusActive, doc.Status)
	}
}

func TestSweepApplySkipsNothingWhenBatchMixesStatuses(t *testing.T) {
	// Overdue and active documents interleave, so each applied batch
	// removes only part of itself from the listing.
	store, policy, now := sweepFixture(400, 10, 500, 20, 600, 30)

	result, err := sweep(context.Background(), store, policy, io.Discard, "oslo-municipality", 2, true, now)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ToArchive)
	assert.Equal(t, 3, result.Archived)

	var stillActive int
	for _, doc := range store.docs {
		if doc.Status == models.DocumentStatusActive {
			stillActive++
		}
	}
	assert.Equal(t, 3, stillActive)
}
