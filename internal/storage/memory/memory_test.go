package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleber123/nytt-sub001/internal/storage"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

var _ storage.Storage = (*Storage)(nil)

func TestStorage_UploadOpenDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	res, err := s.Upload(ctx, &storage.UploadInput{
		Key:         "drafts/d-1/0",
		Name:        "diploma.pdf",
		ContentType: "application/pdf",
		Data:        bytes.NewReader([]byte("%PDF-1.7")),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.Size)

	obj, err := s.Open(ctx, "drafts/d-1/0")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Data)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, "diploma.pdf", obj.Name)
	assert.Equal(t, "application/pdf", obj.ContentType)

	require.NoError(t, s.Delete(ctx, "drafts/d-1/0"))
	_, err = s.Open(ctx, "drafts/d-1/0")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, s.Delete(ctx, "drafts/d-1/0"))
	assert.Zero(t, s.Len())
}

func TestStorage_UploadTooLarge(t *testing.T) {
	s := New()
	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "big",
		Data: io.LimitReader(zeroReader{}, storage.MaxFileSize+1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, s.Len())
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
