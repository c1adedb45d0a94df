package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

const remoteOccupation = `{
  "id": "occ-tail",
  "code": "TAIL",
  "name": "Tailoring",
  "category": "workers_pas",
  "levels": [
    {
      "id": "tail-l1",
      "name": "Level 1",
      "structure_type": "papers",
      "fees": {"workers_pas_per_paper": 75000, "formal": null},
      "modules": [
        {"id": "tm1", "code": "TM1", "name": "Cutting",
         "papers": [{"id": "tp1", "code": "TP1", "name": "Cutting Theory", "type": "theory"}]}
      ]
    },
    {
      "id": "tail-l2",
      "name": "Level 2",
      "structure_type": "papers",
      "fees": {"workers_pas_per_paper": "80000.50"}
    }
  ]
}`

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/occupations/occ-tail":
			w.Write([]byte(`{"schema_version": 1, "occupation": ` + remoteOccupation + `}`))
		case "/occupations/old":
			w.Write([]byte(`{"schema_version": 0, "occupation": {}}`))
		case "/occupations":
			w.Write([]byte(`{"schema_version": 1, "occupations": [` + remoteOccupation + `]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRemoteSourceGetOccupation(t *testing.T) {
	srv := newCatalogServer(t)
	defer srv.Close()

	src := NewRemoteSource(srv.URL+"/", WithToken("secret"))
	ctx := context.Background()

	occ, err := src.GetOccupation(ctx, "occ-tail")
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, models.OccupationWorkersPAS, occ.Category)
	require.Len(t, occ.Levels, 2)
	assert.Equal(t, 0, occ.Levels[0].WorkersPASPerPaperFee.Cmp(apd.New(75000, 0)))
	assert.Nil(t, occ.Levels[0].FormalFee)
	assert.Equal(t, "80000.50", occ.Levels[1].WorkersPASPerPaperFee.String())
	assert.Equal(t, "tm1", occ.Paper("tp1").ModuleID)
	assert.NotEmpty(t, occ.Version)

	missing, err := src.GetOccupation(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = src.GetOccupation(ctx, "old")
	assert.Error(t, err)
}

func TestRemoteSourceListOccupations(t *testing.T) {
	srv := newCatalogServer(t)
	defer srv.Close()

	occupations, err := NewRemoteSource(srv.URL, WithToken("secret")).ListOccupations(context.Background())
	require.NoError(t, err)
	require.Len(t, occupations, 1)
	assert.Equal(t, "TAIL", occupations[0].Code)
}

func TestRemoteSourceUnauthorized(t *testing.T) {
	srv := newCatalogServer(t)
	defer srv.Close()

	_, err := NewRemoteSource(srv.URL).GetOccupation(context.Background(), "occ-tail")
	assert.Error(t, err)
}

func TestRemoteVersionMatchesLocal(t *testing.T) {
	srv := newCatalogServer(t)
	defer srv.Close()

	a, err := NewRemoteSource(srv.URL, WithToken("secret")).GetOccupation(context.Background(), "occ-tail")
	require.NoError(t, err)
	b, err := NewRemoteSource(srv.URL, WithToken("secret")).GetOccupation(context.Background(), "occ-tail")
	require.NoError(t, err)
	assert.Equal(t, a.Version, b.Version)
}
