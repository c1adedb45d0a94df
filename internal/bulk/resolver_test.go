package bulk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func page(total int, filters models.CandidateFilters, ids ...string) Page {
	return Page{IDs: ids, Total: total, PageSize: 3, Filters: filters}
}

func TestResolveExplicit(t *testing.T) {
	r := NewResolver(page(10, models.CandidateFilters{}, "a", "b", "c"))

	_, err := r.Resolve()
	reason, _ := models.ReasonOf(err)
	assert.Equal(t, models.ReasonNothingSelected, reason)

	assert.True(t, r.Select("c"))
	assert.True(t, r.Select("a"))
	assert.False(t, r.Select("z"))

	target, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, models.TargetExplicit, target.Kind)
	assert.Equal(t, []string{"a", "c"}, target.IDs)

	n, err := r.PreviewCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSelectAllMatchingOffer(t *testing.T) {
	r := NewResolver(page(10, models.CandidateFilters{}, "a", "b", "c"))
	assert.False(t, r.CanSelectAllMatching())

	r.Select("a")
	r.Select("b")
	assert.False(t, r.CanSelectAllMatching())
	assert.Error(t, r.SelectAllMatching())

	r.Select("c")
	assert.True(t, r.CanSelectAllMatching())

	// whole result fits on the page: nothing to upgrade to
	small := NewResolver(page(3, models.CandidateFilters{}, "a", "b", "c"))
	small.SelectPage()
	assert.False(t, small.CanSelectAllMatching())
}

func TestSelectAllMatchingUsesAuthoritativeTotal(t *testing.T) {
	filters := models.CandidateFilters{OccupationID: "occ", Search: "ann"}
	r := NewResolver(page(42, filters, "a", "b", "c"))
	r.SelectPage()
	require.NoError(t, r.SelectAllMatching())

	target, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, models.TargetByFilter, target.Kind)
	assert.Equal(t, filters, target.Filters)
	assert.Empty(t, target.IDs)

	n, err := r.PreviewCount()
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestFilterChangeRequiresConfirmation(t *testing.T) {
	r := NewResolver(page(42, models.CandidateFilters{OccupationID: "occ"}, "a", "b", "c"))
	r.SelectPage()
	require.NoError(t, r.SelectAllMatching())

	// next page, same filters: still fine
	r.Refresh(page(42, models.CandidateFilters{OccupationID: "occ"}, "d", "e", "f"))
	_, err := r.Resolve()
	require.NoError(t, err)

	r.Refresh(page(17, models.CandidateFilters{OccupationID: "occ", CenterID: "c1"}, "a", "b", "c"))
	assert.True(t, r.Stale())

	_, err = r.Resolve()
	assert.True(t, errors.Is(err, models.ErrBulkTargetAmbiguous))
	_, err = r.PreviewCount()
	assert.True(t, errors.Is(err, models.ErrBulkTargetAmbiguous))

	r.Confirm()
	target, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "c1", target.Filters.CenterID)
	n, _ := r.PreviewCount()
	assert.Equal(t, 17, n)
}

func TestDeselectLeavesSelectAll(t *testing.T) {
	r := NewResolver(page(42, models.CandidateFilters{}, "a", "b", "c"))
	r.SelectPage()
	require.NoError(t, r.SelectAllMatching())

	r.Deselect("b")
	assert.Equal(t, models.TargetExplicit, r.Mode())
	target, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, target.IDs)
}

func TestDeselectAfterPagingInSelectAll(t *testing.T) {
	first := Page{IDs: []string{"a", "b"}, Total: 4, PageSize: 2}
	r := NewResolver(first)
	r.SelectPage()
	require.NoError(t, r.SelectAllMatching())

	r.Refresh(Page{IDs: []string{"c", "d"}, Total: 4, PageSize: 2})
	r.Deselect("d")

	target, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, target.IDs)
	n, err := r.PreviewCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRefreshNarrowsExplicitSelection(t *testing.T) {
	r := NewResolver(page(10, models.CandidateFilters{}, "a", "b", "c"))
	r.Select("a")
	r.Select("b")

	r.Refresh(page(10, models.CandidateFilters{}, "b", "c", "d"))
	target, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, target.IDs)

	r.Clear()
	_, err = r.Resolve()
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(models.CandidateFilters{Search: "ann ", CenterID: "c1"})
	b := Fingerprint(models.CandidateFilters{Search: "ann", CenterID: "c1"})
	c := Fingerprint(models.CandidateFilters{Search: "ann", CenterID: "c2"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
