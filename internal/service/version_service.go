package service

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

// initialVersion starts every document's chain.
const initialVersion = "1.0.0"

type versionStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error)
	UpdateCurrentVersion(ctx context.Context, tenantID, id, version, checksum, locator string) error
	AppendVersion(ctx context.Context, version *models.VersionInfo) error
	ListVersions(ctx context.Context, documentID string) ([]models.VersionInfo, error)
	GetVersion(ctx context.Context, documentID, version string) (*models.VersionInfo, error)
	LatestVersion(ctx context.Context, documentID string) (*models.VersionInfo, error)
}

// VersionService maintains the append-only version chain per document.
// Versions are never deleted; restore moves the current pointer without
// touching the chain.
type VersionService struct {
	documents versionStore
	content   contentStore
	audit     auditLogger
	bus       *events.Bus
	locks     *DocumentLocks
	logger    *zap.Logger
}

func NewVersionService(
	documents versionStore,
	content contentStore,
	audit auditLogger,
	bus *events.Bus,
	locks *DocumentLocks,
	logger *zap.Logger,
) *VersionService {
	if locks == nil {
		locks = NewDocumentLocks()
	}
	return &VersionService{
		documents: documents,
		content:   content,
		audit:     audit,
		bus:       bus,
		locks:     locks,
		logger:    logger,
	}
}

// CreateVersion stores new content as the next link in the chain and
// advances the current pointer. The patch component increments by one;
// a document without versions starts at 1.0.0.
func (s *VersionService) CreateVersion(ctx context.Context, tenantID, documentID string, content []byte, changedBy, changeReason string) (*models.VersionInfo, error) {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	doc, err := s.documents.GetByID(ctx, tenantID, documentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}

	var previous *string
	next := initialVersion
	latest, err := s.documents.LatestVersion(ctx, documentID)
	switch {
	case err == nil:
		next, err = nextPatchVersion(latest.Version)
		if err != nil {
			return nil, err
		}
		prev := latest.Version
		previous = &prev
	case err == sql.ErrNoRows:
		if doc.CurrentVersion != "" {
			next, err = nextPatchVersion(doc.CurrentVersion)
			if err != nil {
				return nil, err
			}
			prev := doc.CurrentVersion
			previous = &prev
		}
	default:
		return nil, err
	}

	checksum := contentChecksum(content)
	locator := versionLocator(tenantID, documentID, next)
	if _, err := s.content.Save(locator, content); err != nil {
		return nil, fmt.Errorf("store version content: %w", err)
	}

	version := &models.VersionInfo{
		DocumentID:      documentID,
		Version:         next,
		PreviousVersion: previous,
		ChangedBy:       changedBy,
		ChangedAt:       time.Now().UTC(),
		ChangeReason:    changeReason,
		Checksum:        checksum,
		Locator:         locator,
	}
	if err := s.documents.AppendVersion(ctx, version); err != nil {
		// The chain entry failed; do not leave orphaned content behind.
		if cleanupErr := s.content.Delete(locator); cleanupErr != nil {
			s.logger.Warn("orphaned version content cleanup failed",
				zap.String("locator", locator), zap.Error(cleanupErr))
		}
		return nil, err
	}
	if err := s.documents.UpdateCurrentVersion(ctx, tenantID, documentID, next, checksum, locator); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:       events.VersionCreated,
		DocumentID: documentID,
		TenantID:   tenantID,
		Attributes: map[string]interface{}{"version": next},
	})
	s.writeAuditLog(ctx, doc, models.AuditActionVersionCreate, changedBy, next)

	s.logger.Info("version created",
		zap.String("document_id", documentID),
		zap.String("version", next))
	return version, nil
}

// ListVersions returns the chain, newest first.
func (s *VersionService) ListVersions(ctx context.Context, tenantID, documentID string) ([]models.VersionInfo, error) {
	if _, err := s.documents.GetByID(ctx, tenantID, documentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return s.documents.ListVersions(ctx, documentID)
}

// RestoreVersion moves the current pointer back to a prior version.
func (s *VersionService) RestoreVersion(ctx context.Context, tenantID, documentID, targetVersion, restoredBy string) (*models.VersionInfo, error) {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	doc, err := s.documents.GetByID(ctx, tenantID, documentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}

	version, err := s.documents.GetVersion(ctx, documentID, targetVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrVersionNotFound
		}
		return nil, err
	}

	if err := s.documents.UpdateCurrentVersion(ctx, tenantID, documentID, version.Version, version.Checksum, version.Locator); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:       events.VersionRestored,
		DocumentID: documentID,
		TenantID:   tenantID,
		Attributes: map[string]interface{}{"version": version.Version},
	})
	s.writeAuditLog(ctx, doc, models.AuditActionVersionRestore, restoredBy, version.Version)

	s.logger.Info("version restored",
		zap.String("document_id", documentID),
		zap.String("version", version.Version))
	return version, nil
}

func (s *VersionService) writeAuditLog(ctx context.Context, doc *models.DocumentMetadata, action, userID, version string) {
	entry := &models.AuditLog{
		TenantID:       doc.TenantID,
		Action:         action,
		Resource:       "document_version",
		ResourceID:     &doc.ID,
		Classification: string(doc.Classification),
		Details:        []byte(fmt.Sprintf(`{"version":%q}`, version)),
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("action", action),
			zap.String("document_id", doc.ID),
			zap.Error(err))
	}
}

// nextPatchVersion increments the patch component of a semantic
// version string.
func nextPatchVersion(current string) (string, error) {
	parts := strings.Split(current, ".")
	if len(parts) != 3 {
		return "", errors.Clone(errors.ErrValidation, fmt.Sprintf("malformed version %q", current))
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", errors.Clone(errors.ErrValidation, fmt.Sprintf("malformed version %q", current))
	}
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1), nil
}

func versionLocator(tenantID, documentID, version string) string {
	return path.Join("tenants", tenantID, "versions", documentID, version)
}
