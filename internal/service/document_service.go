package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.DocumentMetadata) error
	GetByID(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type contentStore interface {
	Save(locator string, data []byte) (string, error)
	Read(locator string) ([]byte, error)
	Delete(locator string) error
}

type policyStore interface {
	GetPolicy(ctx context.Context, tenantID string) (*models.ArchivePolicy, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type downloadTokenSigner interface {
	Generate(documentID, locator string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (documentID, locator string, expiresAt time.Time, err error)
}

// UploadInput carries one upload request into the service.
type UploadInput struct {
	Filename       string
	MimeType       string
	Content        []byte
	UploadedBy     string
	TenantID       string
	Classification models.Classification
	Tags           []string
	CustomFields   models.FieldMap
}

// DownloadResult pairs content bytes with the metadata they belong to.
type DownloadResult struct {
	Document *models.DocumentMetadata
	Content  []byte
}

// DownloadURL is a time-limited signed reference to document content.
type DownloadURL struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DocumentService orchestrates the upload, download and delete
// lifecycle. Each operation is atomic across its validate, persist,
// notify sequence; operations on the same document are serialized.
type DocumentService struct {
	documents  documentStore
	content    contentStore
	policies   policyStore
	audit      auditLogger
	policy     *PolicyService
	signer     downloadTokenSigner
	bus        *events.Bus
	locks      *DocumentLocks
	cfg        config.DocumentsConfig
	compliance config.ComplianceConfig
	logger     *zap.Logger
}

func NewDocumentService(
	documents documentStore,
	content contentStore,
	policies policyStore,
	audit auditLogger,
	policy *PolicyService,
	signer downloadTokenSigner,
	bus *events.Bus,
	locks *DocumentLocks,
	cfg config.DocumentsConfig,
	compliance config.ComplianceConfig,
	logger *zap.Logger,
) *DocumentService {
	if locks == nil {
		locks = NewDocumentLocks()
	}
	return &DocumentService{
		documents:  documents,
		content:    content,
		policies:   policies,
		audit:      audit,
		policy:     policy,
		signer:     signer,
		bus:        bus,
		locks:      locks,
		cfg:        cfg,
		compliance: compliance,
		logger:     logger,
	}
}

// Upload validates, persists and announces a new document. Events fire
// only after the metadata row exists; a persistence failure aborts
// before anything is published.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*models.DocumentMetadata, error) {
	if int64(len(input.Content)) > s.cfg.MaxFileSizeBytes {
		return nil, errors.ErrFileTooLarge
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		mimeType = http.DetectContentType(input.Content)
	}
	if !s.mimeAllowed(mimeType) {
		return nil, errors.ErrUnsupportedMime
	}

	checksum := contentChecksum(input.Content)
	doc := &models.DocumentMetadata{
		Filename:       input.Filename,
		MimeType:       mimeType,
		Size:           int64(len(input.Content)),
		Checksum:       checksum,
		UploadedBy:     input.UploadedBy,
		TenantID:       input.TenantID,
		Classification: input.Classification,
		CurrentVersion: initialVersion,
		Tags:           normalizeTags(input.Tags),
		CustomFields:   input.CustomFields,
		UploadedAt:     time.Now().UTC(),
	}

	locator := contentLocator(input.TenantID, checksum, input.Filename)
	if _, err := s.content.Save(locator, input.Content); err != nil {
		return nil, fmt.Errorf("store document content: %w", err)
	}
	doc.Locator = locator

	if err := s.documents.Create(ctx, doc); err != nil {
		// Metadata failed; do not leave orphaned content behind.
		if cleanupErr := s.content.Delete(locator); cleanupErr != nil {
			s.logger.Warn("orphaned content cleanup failed",
				zap.String("locator", locator), zap.Error(cleanupErr))
		}
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:       events.DocumentUploaded,
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Attributes: map[string]interface{}{
			"filename":       doc.Filename,
			"size":           doc.Size,
			"classification": string(doc.Classification),
		},
	})

	if s.compliance.NSMEnabled {
		s.writeAuditLog(ctx, doc, models.AuditActionDocumentUpload, input.UploadedBy)
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("tenant_id", doc.TenantID),
		zap.Int64("size", doc.Size))
	return doc, nil
}

// Get returns a single document scoped to the tenant.
func (s *DocumentService) Get(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error) {
	doc, err := s.documents.GetByID(ctx, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns documents matching the filter.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error) {
	return s.documents.List(ctx, filter)
}

// Download reads the stored bytes and verifies them against the
// recorded checksum. Corrupted content is never returned silently.
func (s *DocumentService) Download(ctx context.Context, tenantID, id string) (*DownloadResult, error) {
	doc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	content, err := s.readVerified(doc)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:       events.DocumentDownloaded,
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
	})
	return &DownloadResult{Document: doc, Content: content}, nil
}

// GenerateDownloadURL issues a signed, expiring download token.
func (s *DocumentService) GenerateDownloadURL(ctx context.Context, tenantID, id string) (*DownloadURL, error) {
	doc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.Locator)
	if err != nil {
		return nil, fmt.Errorf("sign download token: %w", err)
	}
	return &DownloadURL{Token: token, ExpiresAt: expiresAt}, nil
}

// DownloadByToken resolves a signed token, still verifying integrity.
func (s *DocumentService) DownloadByToken(ctx context.Context, tenantID, token string) (*DownloadResult, error) {
	documentID, locator, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnauthorized.Code, errors.ErrUnauthorized.Status, "invalid download token")
	}
	doc, err := s.Get(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Locator != locator {
		return nil, errors.ErrUnauthorized
	}
	content, err := s.readVerified(doc)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{Document: doc, Content: content}, nil
}

// Delete removes a document permanently once the retention gate
// passes. The gate failing is a hard stop with no partial deletion.
func (s *DocumentService) Delete(ctx context.Context, tenantID, id, deletedBy string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	policy, err := s.policies.GetPolicy(ctx, tenantID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("load archive policy: %w", err)
	}
	if err := s.policy.CheckDeletionGate(doc, policy, time.Now().UTC()); err != nil {
		return err
	}

	if err := s.content.Delete(doc.Locator); err != nil {
		return fmt.Errorf("delete document content: %w", err)
	}
	if err := s.documents.Delete(ctx, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrNotFound
		}
		return err
	}

	s.bus.Publish(events.Event{
		Name:       events.DocumentDeleted,
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Attributes: map[string]interface{}{"deletedBy": deletedBy},
	})

	if s.compliance.GDPREnabled {
		s.writeAuditLog(ctx, doc, models.AuditActionDocumentDelete, deletedBy)
	}

	s.logger.Info("document deleted",
		zap.String("document_id", doc.ID),
		zap.String("tenant_id", doc.TenantID))
	return nil
}

func (s *DocumentService) readVerified(doc *models.DocumentMetadata) ([]byte, error) {
	content, err := s.content.Read(doc.Locator)
	if err != nil {
		return nil, fmt.Errorf("read document content: %w", err)
	}
	if contentChecksum(content) != doc.Checksum {
		s.logger.Error("document integrity check failed",
			zap.String("document_id", doc.ID),
			zap.String("expected", doc.Checksum))
		return nil, errors.ErrIntegrityCheck
	}
	return content, nil
}

func (s *DocumentService) writeAuditLog(ctx context.Context, doc *models.DocumentMetadata, action, userID string) {
	details, _ := json.Marshal(map[string]interface{}{
		"filename": doc.Filename,
		"size":     doc.Size,
	})
	entry := &models.AuditLog{
		TenantID:       doc.TenantID,
		Action:         action,
		Resource:       "document",
		ResourceID:     &doc.ID,
		Classification: string(doc.Classification),
		Details:        details,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	// Audit failures never roll back the operation they record.
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("action", action),
			zap.String("document_id", doc.ID),
			zap.Error(err))
	}
}

// mimeAllowed matches on the base media type; sniffed types carry
// charset parameters.
func (s *DocumentService) mimeAllowed(mimeType string) bool {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if allowed == mimeType {
			return true
		}
	}
	return false
}

func contentChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func normalizeTags(tags []string) models.StringList {
	if len(tags) == 0 {
		return nil
	}
	out := make(models.StringList, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func contentLocator(tenantID, checksum, filename string) string {
	return path.Join("tenants", tenantID, checksum[:12]+"_"+filename)
}
