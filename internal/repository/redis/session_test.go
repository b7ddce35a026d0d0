package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleber123/nytt-sub001/internal/domain"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleDraft() *domain.Draft {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	a := domain.DefaultAnswers()
	a.Country = "DE"
	a.Services = []string{"apostille"}
	a.DocumentSource = domain.SourceUpload
	a.Quantity = 2
	a.UploadedFiles = []domain.FileSlot{{Key: "drafts/d-1/0/diploma.pdf", Name: "diploma.pdf"}, {}}
	return &domain.Draft{
		ID:          "d-1",
		Flow:        domain.FlowLegalization,
		Answers:     a,
		CurrentStep: 4,
		MaxVisited:  4,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSessionStore_SaveLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, 2*time.Hour)
	ctx := context.Background()

	d := sampleDraft()
	require.NoError(t, store.Save(ctx, d))
	assert.True(t, mr.Exists("draft:d-1"))
	assert.Equal(t, 2*time.Hour, mr.TTL("draft:d-1"))

	got, err := store.Load(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestSessionStore_SaveRefreshesTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	d := sampleDraft()
	require.NoError(t, store.Save(ctx, d))
	mr.FastForward(50 * time.Minute)
	require.NoError(t, store.Save(ctx, d))
	mr.FastForward(50 * time.Minute)

	_, err := store.Load(ctx, d.ID)
	assert.NoError(t, err)
}

func TestSessionStore_LoadExpired(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDraft()))
	mr.FastForward(61 * time.Minute)

	_, err := store.Load(ctx, "d-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSessionStore_LoadCorrupt(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, time.Hour)

	require.NoError(t, mr.Set("draft:d-1", "{not json"))

	_, err := store.Load(context.Background(), "d-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal draft")
}

func TestSessionStore_Clear(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDraft()))
	require.NoError(t, store.Clear(ctx, "d-1"))
	assert.False(t, mr.Exists("draft:d-1"))

	assert.NoError(t, store.Clear(ctx, "d-1"), "clearing twice is fine")
}

func TestSessionStore_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	mr.Close()

	err := store.Save(context.Background(), sampleDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set draft")

	_, err = store.Load(context.Background(), "d-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
}
