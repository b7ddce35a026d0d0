package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

// MaxFileSize is the largest accepted upload (10 MB).
const MaxFileSize = 10 << 20

// AllowedContentTypes are the document formats the order service accepts.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// Storage holds uploaded documents until the order is submitted.
type Storage interface {
	// Upload stores a file under input.Key, replacing any existing file.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Open returns the stored file. The caller closes Data.
	Open(ctx context.Context, key string) (*Object, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, key string) error
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	Name        string
	ContentType string
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key         string
	ContentType string
	Size        int64
}

// Object is a stored file.
type Object struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
	Data        io.ReadCloser
}

// Sniff detects the content type of r from its leading bytes and rejects
// formats outside AllowedContentTypes. The returned reader replays the
// bytes consumed for detection.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("read upload header: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", nil, apperrors.InvalidInput("file is empty")
	}

	mtype := mimetype.Detect(head)
	for m := mtype; m != nil; m = m.Parent() {
		if AllowedContentTypes[m.String()] {
			return m.String(), io.MultiReader(bytes.NewReader(head), r), nil
		}
	}
	return "", nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed", mtype.String()))
}
