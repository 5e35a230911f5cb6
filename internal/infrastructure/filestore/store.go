package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/domain/attachment"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

const tmpDir = ".tmp"

// Store keeps attachment files on local disk under root/<trackingNumber>/.
type Store struct {
	root      string
	algorithm attachment.Algorithm
	maxBytes  int64
	logger    zerolog.Logger
}

// New creates the root and temp directories if needed.
func New(root string, algorithm attachment.Algorithm, maxBytes int64, logger zerolog.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("attachment root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve attachment root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDir), 0o755); err != nil {
		return nil, fmt.Errorf("create attachment root: %w", err)
	}
	if algorithm == "" {
		algorithm = attachment.AlgorithmSHA256
	}
	return &Store{
		root:      abs,
		algorithm: algorithm,
		maxBytes:  maxBytes,
		logger:    logger.With().Str("component", "filestore").Logger(),
	}, nil
}

// Store writes the bytes through a temp file and renames them into place.
// The checksum is taken over what was written to disk.
func (s *Store) Store(ctx context.Context, in attachment.Upload) (*attachment.StoredFile, error) {
	if err := attachment.ValidateUpload(in, s.maxBytes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := trackingDir(in.TrackingNumber)
	if err != nil {
		return nil, err
	}

	storedName := uuid.NewString()
	if ext := attachment.SanitizeExtension(in.OriginalName); ext != "" {
		storedName += "." + ext
	}
	relPath := dir + "/" + storedName

	h, err := s.algorithm.NewHash()
	if err != nil {
		return nil, complaint.NewStorageError("checksum setup failed", err)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "upload-*")
	if err != nil {
		return nil, complaint.NewStorageError("create temp file", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(io.MultiWriter(tmp, h), bytes.NewReader(in.Data))
	if err != nil {
		_ = tmp.Close()
		return nil, complaint.NewStorageError("write attachment", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, complaint.NewStorageError("sync attachment", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, complaint.NewStorageError("close attachment", err)
	}

	finalPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return nil, complaint.NewStorageError("create tracking directory", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, complaint.NewStorageError("move attachment into place", err)
	}
	success = true

	s.logger.Debug().
		Str("relativePath", relPath).
		Int64("size", n).
		Msg("attachment stored")

	return &attachment.StoredFile{
		StoredName:   storedName,
		RelativePath: relPath,
		Checksum:     s.algorithm.Format(h.Sum(nil)),
		Size:         n,
		ContentType:  contentType(in.ContentType, in.Data),
	}, nil
}

// Load opens a stored file for reading.
func (s *Store) Load(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, complaint.NewNotFoundError("attachment file", relativePath)
		}
		return nil, complaint.NewStorageError("open attachment", err)
	}
	return f, nil
}

// Delete removes a stored file; absent files are ignored.
func (s *Store) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return complaint.NewStorageError("delete attachment", err)
	}
	// Drop the tracking directory once it is empty.
	_ = os.Remove(filepath.Dir(p))
	return nil
}

func (s *Store) resolve(relativePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relativePath))
	if relativePath == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", complaint.NewValidationError(fmt.Sprintf("invalid attachment path %q", relativePath))
	}
	return filepath.Join(s.root, clean), nil
}

func trackingDir(trackingNumber string) (string, error) {
	tn := strings.TrimSpace(trackingNumber)
	if tn == "" || tn == "." || tn == ".." || strings.ContainsAny(tn, `/\`) || strings.HasPrefix(tn, ".") {
		return "", complaint.NewValidationError(fmt.Sprintf("invalid tracking number %q", trackingNumber))
	}
	return tn, nil
}

func contentType(declared string, data []byte) string {
	d := strings.TrimSpace(declared)
	if d != "" && d != "application/octet-stream" {
		return d
	}
	return mimetype.Detect(data).String()
}
