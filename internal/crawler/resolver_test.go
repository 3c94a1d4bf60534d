package crawler

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/observability"
)

func newTestResolver(db *memDB) (*resolver, *observability.Metrics) {
	metrics := observability.NewMetrics("catalog", prometheus.NewRegistry())
	return &resolver{stores: db.factory(nil), metrics: metrics, logger: zerolog.Nop()}, metrics
}

func TestResolveAffiliationsFirstSeenWins(t *testing.T) {
	db := newMemDB()
	db.affiliations = append(db.affiliations, &domain.Affiliation{
		ID:      uuid.New(),
		Name:    "MIT",
		City:    "Cambridge",
		Country: "United States",
	})
	r, metrics := newTestResolver(db)

	rec := domain.NewPaperRecord()
	rec.AddAffiliation("60001", domain.RecordAffiliation{Name: "MIT", City: "Boston", Country: "USA"})
	rec.AddAffiliation("60002", domain.RecordAffiliation{Name: "ETH Zurich", City: "Zurich", Country: "Switzerland"})

	resolved, err := r.resolveAffiliations(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	assert.Equal(t, "Cambridge", resolved["60001"].City)
	assert.Equal(t, "United States", resolved["60001"].Country)
	assert.Equal(t, "Zurich", resolved["60002"].City)

	assert.Len(t, db.affiliations, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EntitiesCreated.WithLabelValues("affiliation")))
}

func TestResolveCountsCreatedEntities(t *testing.T) {
	db := newMemDB()
	r, metrics := newTestResolver(db)

	paper := &domain.Paper{ID: uuid.New()}
	rec := testRecord()

	require.NoError(t, r.resolve(context.Background(), paper, rec))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.EntitiesCreated.WithLabelValues("author")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EntitiesCreated.WithLabelValues("keyword")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EntitiesCreated.WithLabelValues("affiliation")))

	// A second resolve of the same record creates nothing new.
	require.NoError(t, r.resolve(context.Background(), paper, rec))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.EntitiesCreated.WithLabelValues("author")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EntitiesCreated.WithLabelValues("keyword")))
}

func TestResolveAuthorOrderRoundTrip(t *testing.T) {
	db := newMemDB()
	r, _ := newTestResolver(db)

	paper := &domain.Paper{ID: uuid.New()}
	rec := domain.NewPaperRecord()
	rec.Authors = []domain.RecordAuthor{
		{Name: "Ana Costa", Order: 3},
		{Name: "Jane Smith", Order: 1},
		{Name: "Wei Chen", Order: 2},
	}
	require.NoError(t, r.resolve(context.Background(), paper, rec))

	links, err := r.stores.Authors.ListByPaper(context.Background(), paper.ID)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, 1, links[0].AuthorOrder)
	assert.Equal(t, 2, links[1].AuthorOrder)
	assert.Equal(t, 3, links[2].AuthorOrder)
}
