package attachment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

// Algorithm names a checksum function.
type Algorithm string

const (
	AlgorithmSHA256  Algorithm = "sha256"
	AlgorithmBLAKE3  Algorithm = "blake3"
	AlgorithmBLAKE2b Algorithm = "blake2b"
)

// ParseAlgorithm validates an algorithm name. Empty selects SHA-256.
func ParseAlgorithm(v string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(v))); a {
	case "":
		return AlgorithmSHA256, nil
	case AlgorithmSHA256, AlgorithmBLAKE3, AlgorithmBLAKE2b:
		return a, nil
	}
	return "", fmt.Errorf("unsupported checksum algorithm %q", v)
}

// NewHash returns a fresh digest for the algorithm.
func (a Algorithm) NewHash() (hash.Hash, error) {
	switch a {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmBLAKE3:
		return blake3.New(), nil
	case AlgorithmBLAKE2b:
		return blake2b.New256(nil)
	}
	return nil, fmt.Errorf("unsupported checksum algorithm %q", a)
}

// Format renders a digest as "<algorithm>:<hex>".
func (a Algorithm) Format(sum []byte) string {
	return string(a) + ":" + hex.EncodeToString(sum)
}

// Checksum digests data with the algorithm.
func Checksum(a Algorithm, data []byte) (string, error) {
	h, err := a.NewHash()
	if err != nil {
		return "", err
	}
	_, _ = h.Write(data)
	return a.Format(h.Sum(nil)), nil
}

// Verify recomputes the checksum of r using the algorithm recorded in want.
func Verify(want string, r io.Reader) (bool, error) {
	name, _, ok := strings.Cut(want, ":")
	if !ok {
		return false, fmt.Errorf("malformed checksum %q", want)
	}
	a, err := ParseAlgorithm(name)
	if err != nil {
		return false, err
	}
	h, err := a.NewHash()
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return false, err
	}
	return hmac.Equal([]byte(a.Format(h.Sum(nil))), []byte(want)), nil
}

// StoredFile describes bytes persisted by a Store.
type StoredFile struct {
	StoredName   string
	RelativePath string
	Checksum     string
	Size         int64
	ContentType  string
}

// Upload is one file handed to a Store.
type Upload struct {
	Data           []byte
	OriginalName   string
	ContentType    string
	TrackingNumber string
}

// Store persists attachment bytes outside the database transaction.
type Store interface {
	Store(ctx context.Context, in Upload) (*StoredFile, error)
	Load(ctx context.Context, relativePath string) (io.ReadCloser, error)
	// Delete is idempotent: a missing file is not an error.
	Delete(ctx context.Context, relativePath string) error
}

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// SanitizeExtension returns the lower-cased extension of name, or "" when it
// is not a short alphanumeric token.
func SanitizeExtension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// SanitizeOriginalName strips directories and control characters from a client filename.
func SanitizeOriginalName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

// ValidateUpload rejects empty or oversized payloads.
func ValidateUpload(in Upload, maxBytes int64) error {
	if len(in.Data) == 0 {
		return complaint.NewValidationError("attachment is empty")
	}
	if maxBytes > 0 && int64(len(in.Data)) > maxBytes {
		return complaint.NewValidationError(fmt.Sprintf("attachment exceeds %d bytes", maxBytes))
	}
	if strings.TrimSpace(in.TrackingNumber) == "" {
		return complaint.NewValidationError("tracking number is required")
	}
	return nil
}
