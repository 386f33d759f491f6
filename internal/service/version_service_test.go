package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

type versionFixture struct {
	svc     *VersionService
	store   *fakeDocumentStore
	content *fakeContentStore
	audit   *fakeAuditLogger
	fired   *[]string
}

func newVersionFixture(t *testing.T) *versionFixture {
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

	svc := NewVersionService(store, content, audit, bus, NewDocumentLocks(), zap.NewNop())
	return &versionFixture{svc: svc, store: store, content: content, audit: audit, fired: fired}
}

func seedDocument(t *testing.T, store *fakeDocumentStore, currentVersion string) *models.DocumentMetadata {
	t.Helper()
	doc := &models.DocumentMetadata{
		TenantID:       "oslo-municipality",
		Filename:       "contract.pdf",
		CurrentVersion: currentVersion,
		Classification: models.ClassificationInternal,
	}
	require.NoError(t, store.Create(context.Background(), doc))
	return doc
}

func TestCreateVersionIncrementsPatch(t *testing.T) {
	fx := newVersionFixture(t)
	doc := seedDocument(t, fx.store, "1.0.0")

	version, err := fx.svc.CreateVersion(context.Background(), "oslo-municipality", doc.ID, []byte("v2"), "user-1", "updated annex")
	require.NoError(t, err)

	assert.Equal(t, "1.0.1", version.Version)
	require.NotNil(t, version.PreviousVersion)
	assert.Equal(t, "1.0.0", *version.PreviousVersion)

	updated, err := fx.store.GetByID(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", updated.CurrentVersion)
	assert.Equal(t, version.Checksum, updated.Checksum)
	assert.Contains(t, *fx.fired, events.VersionCreated)
	assert.Contains(t, fx.audit.actions(), models.AuditActionVersionCreate)
}

func TestCreateVersionStartsAtInitial(t *testing.T) {
	fx := newVersionFixture(t)
	doc := seedDocument(t, fx.store, "")

	version, err := fx.svc.CreateVersion(context.Background(), "oslo-municipality", doc.ID, []byte("v1"), "user-1", "initial")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", version.Version)
	assert.Nil(t, version.PreviousVersion)
}

func TestCreateVersionChain(t *testing.T) {
	fx := newVersionFixture(t)
	doc := seedDocument(t, fx.store, "")

	for i := 0; i < 3; i++ {
		_, err := fx.svc.CreateVersion(context.Background(), "oslo-municipality", doc.ID, []byte{byte(i)}, "user-1", "edit")
		require.NoError(t, err)
	}

	chain, err := fx.svc.ListVersions(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	// Newest first.
	assert.Equal(t, "1.0.2", chain[0].Version)
	assert.Equal(t, "1.0.1", chain[1].Version)
	assert.Equal(t, "1.0.0", chain[2].Version)
	require.NotNil(t, chain[0].PreviousVersion)
	assert.Equal(t, "1.0.1", *chain[0].PreviousVersion)
}

func TestCreateVersionCleansUpContentOnPersistFailure(t *testing.T) {
	fx := newVersionFixture(t)
	doc := seedDocument(t, fx.store, "1.0.0")
	fx.store.appendErr = sql.ErrConnDone

	_, err := fx.svc.CreateVersion(context.Background(), "oslo-municipality", doc.ID, []byte("v2"), "user-1", "edit")
	require.ErrorIs(t, err, sql.ErrConnDone)

	// The saved content must not survive the failed chain entry.
	assert.Empty(t, fx.content.files)

	updated, err := fx.store.GetByID(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", updated.CurrentVersion)
}

func TestCreateVersionUnknownDocument(t *testing.T) {
	fx := newVersionFixture(t)

	_, err := fx.svc.CreateVersion(context.Background(), "oslo-municipality", "missing", []byte("x"), "user-1", "edit")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRestoreVersion(t *testing.T) {
	fx := newVersionFixture(t)
	doc := seedDocument(t, fx.store, "")

	first, err := fx.svc.CreateVersion(context.Background(), "oslo-municipality", doc.ID, []byte("v1"), "user-1", "initial")
	require.NoError(t, err)
	_, err = fx.svc.CreateVersion(context.Background(), "oslo-municipality", doc.ID, []byte("v2"), "user-1", "edit")
	require.NoError(t, err)

	restored, err := fx.svc.RestoreVersion(context.Background(), "oslo-municipality", doc.ID, "1.0.0", "user-2")
	require.NoError(t, err)
	assert.Equal(t, first.Version, restored.Version)

	updated, err := fx.store.GetByID(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", updated.CurrentVersion)
	assert.Equal(t, first.Checksum, updated.Checksum)

	// Restore moves the pointer; the chain itself is untouched.
	chain, err := fx.svc.ListVersions(context.Background(), "oslo-municipality", doc.ID)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
	assert.Contains(t, *fx.fired, events.VersionRestored)
}

func TestRestoreUnknownVersion(t *testing.T) {
	fx := newVersionFixture(t)
	doc := seedDocument(t, fx.store, "")

	_, err := fx.svc.RestoreVersion(context.Background(), "oslo-municipality", doc.ID, "9.9.9", "user-1")
	require.ErrorIs(t, err, errors.ErrVersionNotFound)
}

func TestNextPatchVersion(t *testing.T) {
	next, err := nextPatchVersion("1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", next)

	next, err = nextPatchVersion("2.3.9")
	require.NoError(t, err)
	assert.Equal(t, "2.3.10", next)

	_, err = nextPatchVersion("not-a-version")
	require.Error(t, err)
}
