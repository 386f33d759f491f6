package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/arkivet/document-api/internal/models"
)

func newDocumentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func documentRows(doc *models.DocumentMetadata) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "filename", "mime_type", "size_bytes", "checksum", "locator", "uploaded_at", "uploaded_by",
		"tenant_id", "classification", "status", "current_version", "tags", "custom_fields", "archived_at",
	}).AddRow(
		doc.ID, doc.Filename, doc.MimeType, doc.Size, doc.Checksum, doc.Locator, doc.UploadedAt, doc.UploadedBy,
		doc.TenantID, doc.Classification, doc.Status, doc.CurrentVersion, `["nsm:internal"]`, `{"legalBasis":"contract"}`, nil,
	)
}

func TestDocumentRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.DocumentMetadata{
		Filename:       "contract.pdf",
		MimeType:       "application/pdf",
		Size:           2048,
		Checksum:       "abc123",
		Locator:        "tenants/oslo/contract.pdf",
		UploadedBy:     "user-1",
		TenantID:       "oslo-municipality",
		Classification: models.ClassificationInternal,
		CurrentVersion: "1.0.0",
		Tags:           models.StringList{"nsm:internal"},
		CustomFields:   models.FieldMap{"legalBasis": "contract"},
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	require.NotEmpty(t, doc.ID)
	require.Equal(t, models.DocumentStatusActive, doc.Status)

	doc.UploadedAt = time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, filename, mime_type")).
		WithArgs(doc.ID, doc.TenantID).
		WillReturnRows(documentRows(doc))

	found, err := repo.GetByID(context.Background(), doc.TenantID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.ID, found.ID)
	require.Equal(t, models.StringList{"nsm:internal"}, found.Tags)
	require.Equal(t, "contract", found.CustomFields.StringField("legalBasis"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetScopesTenant(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, filename, mime_type")).
		WithArgs("doc-1", "other-tenant").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "other-tenant", "doc-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDocumentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	doc := &models.DocumentMetadata{
		ID:             "doc-1",
		Filename:       "report.pdf",
		MimeType:       "application/pdf",
		TenantID:       "oslo-municipality",
		Classification: models.ClassificationConfidential,
		Status:         models.DocumentStatusActive,
		UploadedAt:     time.Now().UTC(),
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, filename, mime_type")).
		WithArgs("oslo-municipality", models.ClassificationConfidential).
		WillReturnRows(documentRows(doc))

	items, err := repo.List(context.Background(), models.DocumentFilter{
		TenantID:       "oslo-municipality",
		Classification: models.ClassificationConfidential,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "doc-1", items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).
		WithArgs("doc-1", "oslo-municipality").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "oslo-municipality", "doc-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).
		WithArgs("doc-2", "oslo-municipality").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "oslo-municipality", "doc-2"), sql.ErrNoRows)
}

func TestDocumentRepositoryVersionChain(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_versions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	prev := "1.0.0"
	version := &models.VersionInfo{
		DocumentID:      "doc-1",
		Version:         "1.0.1",
		PreviousVersion: &prev,
		ChangedBy:       "user-1",
		ChangeReason:    "updated annex",
		Checksum:        "def456",
		Locator:         "tenants/oslo/doc-1/1.0.1",
	}
	require.NoError(t, repo.AppendVersion(context.Background(), version))
	require.False(t, version.ChangedAt.IsZero())

	rows := sqlmock.NewRows([]string{"document_id", "version", "previous_version", "changed_by", "changed_at", "change_reason", "checksum", "locator"}).
		AddRow("doc-1", "1.0.1", prev, "user-1", time.Now(), "updated annex", "def456", "tenants/oslo/doc-1/1.0.1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT document_id, version, previous_version")).
		WithArgs("doc-1").
		WillReturnRows(rows)

	latest, err := repo.LatestVersion(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, "1.0.1", latest.Version)
	require.NotNil(t, latest.PreviousVersion)
	require.Equal(t, "1.0.0", *latest.PreviousVersion)
}
