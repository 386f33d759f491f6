package service

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

// buildArtifact wraps document content in the container the archive
// policy asks for. Tar artifacts gain gzip when compression is on; zip
// switches between store and deflate. 7z has no encoder here and is
// rejected as a configuration error.
func buildArtifact(format models.ArchiveFormat, compress bool, filename string, content []byte) ([]byte, string, error) {
	switch format {
	case models.ArchiveFormatZip:
		data, err := buildZip(compress, filename, content)
		return data, "zip", err
	case models.ArchiveFormatTar:
		if compress {
			data, err := buildTarGz(filename, content)
			return data, "tar.gz", err
		}
		data, err := buildTar(filename, content)
		return data, "tar", err
	default:
		return nil, "", errors.Clone(errors.ErrUnsupportedFormat, fmt.Sprintf("no artifact encoder for format %q", format))
	}
}

func buildZip(compress bool, filename string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	header := &zip.FileHeader{Name: filename, Method: zip.Store}
	if compress {
		header.Method = zip.Deflate
	}
	entry, err := w.CreateHeader(header)
	if err != nil {
		return nil, fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := entry.Write(content); err != nil {
		return nil, fmt.Errorf("write zip entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

func buildTar(filename string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTar(&buf, filename, content); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildTarGz(filename string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := writeTar(gz, filename, content); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("finalize gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTar(dst interface{ Write([]byte) (int, error) }, filename string, content []byte) error {
	w := tar.NewWriter(dst)
	header := &tar.Header{
		Name: filename,
		Mode: 0o644,
		Size: int64(len(content)),
	}
	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write tar entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize tar: %w", err)
	}
	return nil
}
