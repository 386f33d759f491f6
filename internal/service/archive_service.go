package service

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/errors"
	jobqueue "github.com/arkivet/document-api/pkg/jobs"
)

const (
	archivePolicyCacheKeyPrefix = "archive:policy:"
	archivePolicyCacheTTL       = 10 * time.Minute
	archiveJobType              = "archive_document"
)

type archiveStore interface {
	UpsertPolicy(ctx context.Context, policy *models.ArchivePolicy) error
	GetPolicy(ctx context.Context, tenantID string) (*models.ArchivePolicy, error)
	CreateRecord(ctx context.Context, record *models.ArchiveRecord) error
	CompleteRecord(ctx context.Context, id, status, artifactRef string, at time.Time) error
	GetRecord(ctx context.Context, id string) (*models.ArchiveRecord, error)
}

type archiveDocumentStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status models.DocumentStatus, at time.Time) error
}

type policyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// archiveJobPayload carries one artifact build through the worker pool.
type archiveJobPayload struct {
	RecordID   string
	TenantID   string
	DocumentID string
	Policy     models.ArchivePolicy
}

// ArchiveService manages tenant archive policies and produces archive
// artifacts. Artifact creation is I/O bound and runs on a worker pool
// so it never blocks unrelated document operations.
type ArchiveService struct {
	archives   archiveStore
	documents  archiveDocumentStore
	content    contentStore
	artifacts  contentStore
	cache      policyCache
	audit      auditLogger
	bus        *events.Bus
	locks      *DocumentLocks
	queue      *jobqueue.Queue
	maxRetries int
	metrics    *MetricsService
	logger     *zap.Logger
}

func NewArchiveService(
	archives archiveStore,
	documents archiveDocumentStore,
	content contentStore,
	artifacts contentStore,
	cache policyCache,
	audit auditLogger,
	bus *events.Bus,
	locks *DocumentLocks,
	cfg config.ArchivesConfig,
	logger *zap.Logger,
) *ArchiveService {
	if locks == nil {
		locks = NewDocumentLocks()
	}
	maxRetries := cfg.WorkerRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	s := &ArchiveService{
		archives:   archives,
		documents:  documents,
		content:    content,
		artifacts:  artifacts,
		cache:      cache,
		audit:      audit,
		bus:        bus,
		locks:      locks,
		maxRetries: maxRetries,
		logger:     logger,
	}
	s.queue = jobqueue.NewQueue("archives", s.processJob, jobqueue.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// SetMetrics wires the observability collectors. A nil receiver on the
// metrics side is a no-op, so wiring stays optional.
func (s *ArchiveService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// Start launches the artifact workers.
func (s *ArchiveService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the artifact workers.
func (s *ArchiveService) Stop() {
	s.queue.Stop()
}

// UpsertPolicy replaces the tenant's archive policy wholesale. There
// are no merge semantics: the stored policy is exactly what was sent.
func (s *ArchiveService) UpsertPolicy(ctx context.Context, policy *models.ArchivePolicy, updatedBy string) error {
	if !policy.ArchiveFormat.Valid() {
		return errors.ErrUnsupportedFormat
	}
	if err := s.archives.UpsertPolicy(ctx, policy); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, archivePolicyCacheKeyPrefix+policy.TenantID); err != nil {
		s.logger.Warn("archive policy cache invalidation failed",
			zap.String("tenant_id", policy.TenantID), zap.Error(err))
	}

	s.bus.Publish(events.Event{
		Name:     events.ArchivePolicyUpdated,
		TenantID: policy.TenantID,
		Attributes: map[string]interface{}{
			"retentionDays": policy.RetentionDays,
			"format":        string(policy.ArchiveFormat),
		},
	})
	s.writeAuditLog(ctx, policy.TenantID, models.AuditActionPolicyUpdate, "archive_policy", policy.TenantID, updatedBy, "")
	return nil
}

// GetPolicy reads the tenant policy through the cache.
func (s *ArchiveService) GetPolicy(ctx context.Context, tenantID string) (*models.ArchivePolicy, error) {
	key := archivePolicyCacheKeyPrefix + tenantID

	var cached models.ArchivePolicy
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.metrics.RecordCacheOperation(true)
		return &cached, nil
	} else if err != errors.ErrCacheMiss {
		s.logger.Warn("archive policy cache read failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}
	s.metrics.RecordCacheOperation(false)

	policy, err := s.archives.GetPolicy(ctx, tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNoArchivePolicy
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, key, policy, archivePolicyCacheTTL); err != nil {
		s.logger.Warn("archive policy cache write failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return policy, nil
}

// ArchiveDocument marks the document archived and schedules artifact
// creation. The status change and the archive record are persisted
// before the event fires; the artifact itself is built asynchronously.
func (s *ArchiveService) ArchiveDocument(ctx context.Context, tenantID, documentID, archivedBy string) (*models.ArchiveRecord, error) {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	doc, err := s.documents.GetByID(ctx, tenantID, documentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}

	policy, err := s.GetPolicy(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	record := &models.ArchiveRecord{
		DocumentID: documentID,
		TenantID:   tenantID,
		Format:     policy.ArchiveFormat,
	}
	if err := s.archives.CreateRecord(ctx, record); err != nil {
		return nil, err
	}
	if err := s.documents.UpdateStatus(ctx, tenantID, documentID, models.DocumentStatusArchived, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(jobqueue.Job{
		ID:   record.ID,
		Type: archiveJobType,
		Payload: archiveJobPayload{
			RecordID:   record.ID,
			TenantID:   tenantID,
			DocumentID: documentID,
			Policy:     *policy,
		},
	}); err != nil {
		return nil, fmt.Errorf("enqueue archive job: %w", err)
	}

	s.bus.Publish(events.Event{
		Name:       events.DocumentArchived,
		DocumentID: documentID,
		TenantID:   tenantID,
		Attributes: map[string]interface{}{"format": string(policy.ArchiveFormat)},
	})
	s.writeAuditLog(ctx, tenantID, models.AuditActionDocumentArchive, "document", documentID, archivedBy, string(doc.Classification))

	s.logger.Info("document archive scheduled",
		zap.String("document_id", documentID),
		zap.String("record_id", record.ID))
	return record, nil
}

// GetRecord returns one archive record, tenant scoped.
func (s *ArchiveService) GetRecord(ctx context.Context, tenantID, recordID string) (*models.ArchiveRecord, error) {
	record, err := s.archives.GetRecord(ctx, recordID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	if record.TenantID != tenantID {
		return nil, errors.ErrNotFound
	}
	return record, nil
}

// processJob builds one archive artifact. A failure marks the record
// failed only after retries are exhausted, so the returned error feeds
// the queue's retry loop.
func (s *ArchiveService) processJob(ctx context.Context, job jobqueue.Job) error {
	payload, ok := job.Payload.(archiveJobPayload)
	if !ok {
		s.logger.Error("unexpected archive job payload", zap.String("job_id", job.ID))
		return nil
	}

	doc, err := s.documents.GetByID(ctx, payload.TenantID, payload.DocumentID)
	if err != nil {
		return s.failJob(ctx, job, payload, fmt.Errorf("load document: %w", err))
	}
	content, err := s.content.Read(doc.Locator)
	if err != nil {
		return s.failJob(ctx, job, payload, fmt.Errorf("read content: %w", err))
	}

	artifact, ext, err := buildArtifact(payload.Policy.ArchiveFormat, payload.Policy.CompressionEnabled, doc.Filename, content)
	if err != nil {
		// A format without an encoder never succeeds; fail immediately.
		s.completeRecord(ctx, payload.RecordID, models.ArchiveStatusFailed, "")
		s.logger.Error("archive artifact build failed",
			zap.String("record_id", payload.RecordID), zap.Error(err))
		return nil
	}

	artifactRef := path.Join(payload.TenantID, payload.RecordID+"."+ext)
	if _, err := s.artifacts.Save(artifactRef, artifact); err != nil {
		return s.failJob(ctx, job, payload, fmt.Errorf("store artifact: %w", err))
	}

	s.completeRecord(ctx, payload.RecordID, models.ArchiveStatusCompleted, artifactRef)

	if payload.Policy.DeleteAfterArchive {
		if err := s.content.Delete(doc.Locator); err != nil {
			s.logger.Warn("original content cleanup failed",
				zap.String("document_id", payload.DocumentID), zap.Error(err))
		}
	}

	s.logger.Info("archive artifact completed",
		zap.String("record_id", payload.RecordID),
		zap.String("artifact_ref", artifactRef))
	return nil
}

func (s *ArchiveService) failJob(ctx context.Context, job jobqueue.Job, payload archiveJobPayload, err error) error {
	if job.Attempt >= s.maxRetries {
		s.completeRecord(ctx, payload.RecordID, models.ArchiveStatusFailed, "")
	}
	return err
}

func (s *ArchiveService) completeRecord(ctx context.Context, recordID, status, artifactRef string) {
	s.metrics.ObserveArchiveJob(status)
	if err := s.archives.CompleteRecord(ctx, recordID, status, artifactRef, time.Now().UTC()); err != nil {
		s.logger.Error("archive record update failed",
			zap.String("record_id", recordID), zap.Error(err))
	}
}

func (s *ArchiveService) writeAuditLog(ctx context.Context, tenantID, action, resource, resourceID, userID, classification string) {
	entry := &models.AuditLog{
		TenantID:       tenantID,
		Action:         action,
		Resource:       resource,
		ResourceID:     &resourceID,
		Classification: classification,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}
