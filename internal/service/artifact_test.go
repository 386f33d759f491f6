package service

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

func TestBuildArtifactTar(t *testing.T) {
	data, ext, err := buildArtifact(models.ArchiveFormatTar, false, "case.pdf", []byte("tar-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "tar", ext)

	reader := tar.NewReader(bytes.NewReader(data))
	header, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "case.pdf", header.Name)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("tar-bytes"), content)
}

func TestBuildArtifactTarGz(t *testing.T) {
	data, ext, err := buildArtifact(models.ArchiveFormatTar, true, "case.pdf", []byte("tar-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "tar.gz", ext)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	reader := tar.NewReader(gz)
	header, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "case.pdf", header.Name)
}

func TestBuildArtifactRejects7z(t *testing.T) {
	_, _, err := buildArtifact(models.ArchiveFormat7z, false, "case.pdf", nil)
	require.Error(t, err)

	var domainErr *errors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, errors.ErrUnsupportedFormat.Code, domainErr.Code)
}
