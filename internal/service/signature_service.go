package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

type signatureStore interface {
	Create(ctx context.Context, req *models.SignatureRequest) error
	GetByID(ctx context.Context, tenantID, id string) (*models.SignatureRequest, error)
	UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) error
}

type signatureDocumentStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error)
}

// SignatureDispatcher hands a signing request to one external provider
// and returns the provider's signing URL. Provider protocol details
// stay behind this boundary.
type SignatureDispatcher interface {
	Initiate(ctx context.Context, req *models.SignatureRequest) (string, error)
}

// SignatureDispatcherFunc adapts a function to SignatureDispatcher.
type SignatureDispatcherFunc func(ctx context.Context, req *models.SignatureRequest) (string, error)

func (f SignatureDispatcherFunc) Initiate(ctx context.Context, req *models.SignatureRequest) (string, error) {
	return f(ctx, req)
}

// InitiateSignatureInput carries one signing request.
type InitiateSignatureInput struct {
	DocumentID  string
	TenantID    string
	Provider    models.SignatureProvider
	Level       models.SignatureLevel
	Signers     []models.Signer
	RequestedBy string
}

// SignatureService dispatches signing flows to registered providers.
type SignatureService struct {
	signatures  signatureStore
	documents   signatureDocumentStore
	audit       auditLogger
	bus         *events.Bus
	dispatchers map[models.SignatureProvider]SignatureDispatcher
	logger      *zap.Logger
}

func NewSignatureService(
	signatures signatureStore,
	documents signatureDocumentStore,
	audit auditLogger,
	bus *events.Bus,
	logger *zap.Logger,
) *SignatureService {
	return &SignatureService{
		signatures:  signatures,
		documents:   documents,
		audit:       audit,
		bus:         bus,
		dispatchers: make(map[models.SignatureProvider]SignatureDispatcher),
		logger:      logger,
	}
}

// RegisterDispatcher wires one provider integration. Unregistered
// providers are rejected at initiation time.
func (s *SignatureService) RegisterDispatcher(provider models.SignatureProvider, dispatcher SignatureDispatcher) {
	s.dispatchers[provider] = dispatcher
}

// Initiate creates a pending signature request and dispatches it to the
// provider. The request row persists before the provider call so the
// reference survives a dispatch failure.
func (s *SignatureService) Initiate(ctx context.Context, input InitiateSignatureInput) (*models.SignatureRequest, error) {
	dispatcher, ok := s.dispatchers[input.Provider]
	if !ok {
		return nil, errors.Clone(errors.ErrUnsupportedProvider, fmt.Sprintf("unsupported signature provider %q", input.Provider))
	}

	doc, err := s.documents.GetByID(ctx, input.TenantID, input.DocumentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}

	signers := make(models.SignerList, len(input.Signers))
	for i, signer := range input.Signers {
		signer.Status = models.SignatureStatusPending
		signers[i] = signer
	}

	req := &models.SignatureRequest{
		ID:          uuid.NewString(),
		DocumentID:  input.DocumentID,
		TenantID:    input.TenantID,
		Provider:    input.Provider,
		Level:       input.Level,
		Status:      models.SignatureStatusPending,
		Signers:     signers,
		RequestedBy: input.RequestedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.signatures.Create(ctx, req); err != nil {
		return nil, err
	}

	providerURL, err := dispatcher.Initiate(ctx, req)
	if err != nil {
		if updateErr := s.signatures.UpdateStatus(ctx, req.ID, models.SignatureStatusFailed, nil); updateErr != nil {
			s.logger.Error("signature status update failed",
				zap.String("request_id", req.ID), zap.Error(updateErr))
		}
		return nil, fmt.Errorf("dispatch to %s: %w", input.Provider, err)
	}
	req.ProviderURL = providerURL

	s.bus.Publish(events.Event{
		Name:       events.SignatureInitiated,
		DocumentID: input.DocumentID,
		TenantID:   input.TenantID,
		Attributes: map[string]interface{}{
			"provider":  string(input.Provider),
			"requestId": req.ID,
		},
	})
	s.writeAuditLog(ctx, doc, req, input.RequestedBy)

	s.logger.Info("signature initiated",
		zap.String("request_id", req.ID),
		zap.String("provider", string(input.Provider)))
	return req, nil
}

// Get returns one signature request, tenant scoped.
func (s *SignatureService) Get(ctx context.Context, tenantID, id string) (*models.SignatureRequest, error) {
	req, err := s.signatures.GetByID(ctx, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// Complete records the provider's terminal outcome for a request.
func (s *SignatureService) Complete(ctx context.Context, tenantID, id, status string) (*models.SignatureRequest, error) {
	switch status {
	case models.SignatureStatusCompleted, models.SignatureStatusDeclined, models.SignatureStatusFailed:
	default:
		return nil, errors.Clone(errors.ErrValidation, fmt.Sprintf("invalid terminal status %q", status))
	}

	req, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.signatures.UpdateStatus(ctx, id, status, &now); err != nil {
		return nil, err
	}
	req.Status = status
	req.CompletedAt = &now
	return req, nil
}

func (s *SignatureService) writeAuditLog(ctx context.Context, doc *models.DocumentMetadata, req *models.SignatureRequest, userID string) {
	entry := &models.AuditLog{
		TenantID:       doc.TenantID,
		Action:         models.AuditActionSignatureInit,
		Resource:       "signature_request",
		ResourceID:     &req.ID,
		Classification: string(doc.Classification),
		Details:        []byte(fmt.Sprintf(`{"provider":%q,"documentId":%q}`, req.Provider, req.DocumentID)),
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("request_id", req.ID), zap.Error(err))
	}
}
