package bulk

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func TestMemoryStoreConfirmAndVerify(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	filters := models.CandidateFilters{OccupationID: "occ", SeriesID: "s1"}

	token, err := Confirm(ctx, store, filters, 120, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	c, err := Verify(ctx, store, token, filters)
	require.NoError(t, err)
	assert.Equal(t, 120, c.Count)
	assert.Equal(t, filters, c.Filters)

	_, err = Verify(ctx, store, token, models.CandidateFilters{OccupationID: "occ"})
	reason, _ := models.ReasonOf(err)
	assert.Equal(t, models.ReasonFiltersChanged, reason)

	_, err = Verify(ctx, store, "", filters)
	reason, _ = models.ReasonOf(err)
	assert.Equal(t, models.ReasonNotConfirmed, reason)

	_, err = Verify(ctx, store, "unknown", filters)
	assert.True(t, errors.Is(err, models.ErrBulkTargetAmbiguous))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token, err := store.Issue(ctx, Confirmation{Fingerprint: "x"}, time.Minute)
	require.NoError(t, err)

	c, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, c)

	now = now.Add(2 * time.Minute)
	c, err = store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set, skipping")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer store.Close()

	filters := models.CandidateFilters{CenterID: "c1"}
	token, err := Confirm(ctx, store, filters, 7, time.Minute)
	require.NoError(t, err)

	c, err := Verify(ctx, store, token, filters)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Count)

	c, err = store.Lookup(ctx, "missing-token")
	require.NoError(t, err)
	assert.Nil(t, c)
}
