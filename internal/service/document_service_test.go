package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/storage"
)

type fakeDocumentStore struct {
	mu        sync.Mutex
	docs      map[string]*models.DocumentMetadata
	versions  map[string][]models.VersionInfo
	appendErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		docs:     map[string]*models.DocumentMetadata{},
		versions: map[string][]models.VersionInfo{},
	}
}

func (f *fakeDocumentStore) Create(_ context.Context, doc *models.DocumentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusActive
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeDocumentStore) GetByID(_ context.Context, tenantID, id string) (*models.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocumentStore) List(_ context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DocumentMetadata
	for _, doc := range f.docs {
		if doc.TenantID == filter.TenantID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) Delete(_ context.Context, tenantID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentStore) UpdateStatus(_ context.Context, tenantID, id string, status models.DocumentStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return sql.ErrNoRows
	}
	doc.Status = status
	if status == models.DocumentStatusArchived {
		doc.ArchivedAt = &at
	}
	return nil
}

func (f *fakeDocumentStore) UpdateCurrentVersion(_ context.Context, tenantID, id, version, checksum, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return sql.ErrNoRows
	}
	doc.CurrentVersion = version
	doc.Checksum = checksum
	doc.Locator = locator
	return nil
}

func (f *fakeDocumentStore) AppendVersion(_ context.Context, version *models.VersionInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.versions[version.DocumentID] = append(f.versions[version.DocumentID], *version)
	return nil
}

func (f *fakeDocumentStore) ListVersions(_ context.Context, documentID string) ([]models.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chain := f.versions[documentID]
	out := make([]models.VersionInfo, len(chain))
	for i := range chain {
		out[len(chain)-1-i] = chain[i]
	}
	return out, nil
}

func (f *fakeDocumentStore) GetVersion(_ context.Context, documentID, version string) (*models.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions[documentID] {
		if v.Version == version {
			clone := v
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDocumentStore) LatestVersion(_ context.Context, documentID string) (*models.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chain := f.versions[documentID]
	if len(chain) == 0 {
		return nil, sql.ErrNoRows
	}
	clone := chain[len(chain)-1]
	return &clone, nil
}

type fakeContentStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{files: map[string][]byte{}}
}

func (f *fakeContentStore) Save(locator string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.files[locator] = buf
	return locator, nil
}

func (f *fakeContentStore) Read(locator string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[locator]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return data, nil
}

func (f *fakeContentStore) Delete(locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, locator)
	return nil
}

type fakePolicyStore struct {
	policies map[string]*models.ArchivePolicy
}

func (f *fakePolicyStore) GetPolicy(_ context.Context, tenantID string) (*models.ArchivePolicy, error) {
	if f.policies == nil {
		return nil, sql.ErrNoRows
	}
	policy, ok := f.policies[tenantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return policy, nil
}

type fakeAuditLogger struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAuditLogger) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *log)
	return nil
}

func (f *fakeAuditLogger) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, entry := range f.entries {
		out[i] = entry.Action
	}
	return out
}

type documentFixture struct {
	svc     *DocumentService
	store   *fakeDocumentStore
	content *fakeContentStore
	audit   *fakeAuditLogger
	fired   *[]string
}

func newDocumentFixture(t *testing.T, compliance config.ComplianceConfig, policies map[string]*models.ArchivePolicy) *documentFixture {
	t.Helper()

	store := newFakeDocumentStore()
	content := newFakeContentStore()
	audit := &fakeAuditLogger{}
	bus := events.NewBus(zap.NewNop())

	fired := &[]string{}
	bus.SubscribeAll(events.SubscriberFunc(func(evt events.Event) error {
		*fired = append(*fired, evt.Name)
		return nil
	}))

	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewDocumentService(
		store,
		content,
		&fakePolicyStore{policies: policies},
		audit,
		NewPolicyService(compliance),
		signer,
		bus,
		NewDocumentLocks(),
		config.DocumentsConfig{
			MaxFileSizeBytes: 1024,
			AllowedMIMEs:     []string{"application/pdf", "text/plain"},
		},
		compliance,
		zap.NewNop(),
	)
	return &documentFixture{svc: svc, store: store, content: content, audit: audit, fired: fired}
}

func pdfUpload(tenantID string) UploadInput {
	return UploadInput{
		Filename:       "contract.pdf",
		MimeType:       "application/pdf",
		Content:        []byte("pdf-bytes"),
		UploadedBy:     "user-1",
		TenantID:       tenantID,
		Classification: models.ClassificationInternal,
		Tags:           []string{"nsm:internal"},
	}
}

func TestUploadValidation(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	t.Run("file too large", func(t *testing.T) {
		input := pdfUpload("oslo-municipality")
		input.Content = make([]byte, 2048)
		_, err := fx.svc.Upload(context.Background(), input)
		require.ErrorIs(t, err, errors.ErrFileTooLarge)
	})

	t.Run("unsupported mime", func(t *testing.T) {
		input := pdfUpload("oslo-municipality")
		input.MimeType = "application/x-msdownload"
		_, err := fx.svc.Upload(context.Background(), input)
		require.ErrorIs(t, err, errors.ErrUnsupportedMime)
	})

	t.Run("sniffed mime still filtered", func(t *testing.T) {
		input := pdfUpload("oslo-municipality")
		input.MimeType = ""
		input.Content = []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00}
		_, err := fx.svc.Upload(context.Background(), input)
		require.ErrorIs(t, err, errors.ErrUnsupportedMime)
	})

	// Rejected uploads persist nothing and fire nothing.
	assert.Empty(t, fx.store.docs)
	assert.Empty(t, *fx.fired)
}

func TestUploadPersistsAndNotifies(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{NSMEnabled: true}, nil)

	doc, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.NotEmpty(t, doc.Checksum)
	assert.Equal(t, "1.0.0", doc.CurrentVersion)
	assert.Equal(t, []string{events.DocumentUploaded}, *fx.fired)
	assert.Equal(t, []string{models.AuditActionDocumentUpload}, fx.audit.actions())
}

func TestUploadSniffsMissingMimeType(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	input := pdfUpload("oslo-municipality")
	input.MimeType = ""
	input.Content = []byte("plain text body")
	doc, err := fx.svc.Upload(context.Background(), input)
	require.NoError(t, err)
	assert.Contains(t, doc.MimeType, "text/plain")
}

func TestUploadSkipsAuditWhenNSMDisabled(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{NSMEnabled: false}, nil)

	_, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)
	assert.Empty(t, fx.audit.actions())
}

func TestDownloadRoundTrip(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	input := pdfUpload("oslo-municipality")
	doc, err := fx.svc.Upload(context.Background(), input)
	require.NoError(t, err)

	result, err := fx.svc.Download(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, input.Content, result.Content)
	assert.Equal(t, doc.Checksum, result.Document.Checksum)
}

func TestDownloadDetectsCorruption(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	doc, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)

	fx.content.files[doc.Locator] = []byte("tampered")

	_, err = fx.svc.Download(context.Background(), "oslo-municipality", doc.ID)
	require.ErrorIs(t, err, errors.ErrIntegrityCheck)
}

func TestDownloadUnknownDocument(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	_, err := fx.svc.Download(context.Background(), "oslo-municipality", "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSignedDownloadURL(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	doc, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)

	url, err := fx.svc.GenerateDownloadURL(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, url.Token)

	result, err := fx.svc.DownloadByToken(context.Background(), "oslo-municipality", url.Token)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, result.Document.ID)

	_, err = fx.svc.DownloadByToken(context.Background(), "oslo-municipality", url.Token+"x")
	require.Error(t, err)
}

func TestDeleteHonoursRetentionGate(t *testing.T) {
	policies := map[string]*models.ArchivePolicy{
		"oslo-municipality": {TenantID: "oslo-municipality", RetentionDays: 365},
	}
	fx := newDocumentFixture(t, config.ComplianceConfig{GDPREnabled: true}, policies)

	doc, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), "oslo-municipality", doc.ID, "user-1")
	require.ErrorIs(t, err, errors.ErrRetentionPolicy)

	// Nothing was touched: no partial deletion.
	_, err = fx.svc.Get(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	_, err = fx.content.Read(doc.Locator)
	require.NoError(t, err)
}

func TestDeleteRemovesContentAndMetadata(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{GDPREnabled: true}, nil)

	doc, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(context.Background(), "oslo-municipality", doc.ID, "user-1"))

	_, err = fx.svc.Get(context.Background(), "oslo-municipality", doc.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = fx.content.Read(doc.Locator)
	require.Error(t, err)
	assert.Contains(t, *fx.fired, events.DocumentDeleted)
	assert.Contains(t, fx.audit.actions(), models.AuditActionDocumentDelete)
}

func TestDeleteCrossTenant(t *testing.T) {
	fx := newDocumentFixture(t, config.ComplianceConfig{}, nil)

	doc, err := fx.svc.Upload(context.Background(), pdfUpload("oslo-municipality"))
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), "bergen-municipality", doc.ID, "user-2")
	require.ErrorIs(t, err, errors.ErrNotFound)
}
