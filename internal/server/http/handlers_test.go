package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litcatalog/catalog-service/internal/crawler"
	"github.com/litcatalog/catalog-service/internal/database"
	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/metasources"
	"github.com/litcatalog/catalog-service/internal/observability"
	"github.com/litcatalog/catalog-service/internal/repository"
	"github.com/litcatalog/catalog-service/internal/suggest"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// stubDatabase satisfies the Database interface without a real pool.
type stubDatabase struct {
	healthFn func(ctx context.Context) database.HealthStatus
	txErr    error
}

func (d *stubDatabase) WithTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	if d.txErr != nil {
		return d.txErr
	}
	return fn(nil)
}

func (d *stubDatabase) Health(ctx context.Context) database.HealthStatus {
	if d.healthFn != nil {
		return d.healthFn(ctx)
	}
	return database.HealthStatus{Status: "healthy"}
}

// stubSuggester returns a canned suggestion result.
type stubSuggester struct {
	result suggest.Result
	text   string
}

func (s *stubSuggester) KeyPhrases(_ context.Context, text string) suggest.Result {
	s.text = text
	return s.result
}

// stubSource is a canned baseline metadata source.
type stubSource struct {
	validateOK  bool
	validateErr error
	rec         *domain.PaperRecord
	fetchErr    error
}

func (s *stubSource) Validate(_ context.Context, _ string) (bool, error) {
	return s.validateOK, s.validateErr
}

func (s *stubSource) Fetch(_ context.Context, _ string) (*domain.PaperRecord, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.rec, nil
}

func (s *stubSource) Name() string { return "stub" }

// mockPaperRepo implements repository.PaperRepository for handler tests.
type mockPaperRepo struct {
	upsertFn             func(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
	getByReferenceIDFn   func(ctx context.Context, referenceID string) (*domain.Paper, error)
	nextManualSequenceFn func(ctx context.Context) (int, error)
	searchFn             func(ctx context.Context, query string, limit, offset int) ([]*domain.Paper, int64, error)
	listFn               func(ctx context.Context, filter repository.PaperFilter) ([]*domain.Paper, int64, error)
	loadAssociationsFn   func(ctx context.Context, paper *domain.Paper) error
}

func (m *mockPaperRepo) Upsert(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, paper)
	}
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	return paper, nil
}

func (m *mockPaperRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPaperRepo) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Paper, error) {
	if m.getByReferenceIDFn != nil {
		return m.getByReferenceIDFn(ctx, referenceID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPaperRepo) NextManualSequence(ctx context.Context) (int, error) {
	if m.nextManualSequenceFn != nil {
		return m.nextManualSequenceFn(ctx)
	}
	return 1, nil
}

func (m *mockPaperRepo) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Paper, int64, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockPaperRepo) List(ctx context.Context, filter repository.PaperFilter) ([]*domain.Paper, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockPaperRepo) LoadAssociations(ctx context.Context, paper *domain.Paper) error {
	if m.loadAssociationsFn != nil {
		return m.loadAssociationsFn(ctx, paper)
	}
	return nil
}

// mockAuthorRepo implements repository.AuthorRepository.
type mockAuthorRepo struct {
	getByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Author, error)
}

func (m *mockAuthorRepo) GetOrCreate(_ context.Context, name, indexedName string) (*domain.Author, bool, error) {
	return &domain.Author{ID: uuid.New(), Name: name, IndexedName: indexedName}, true, nil
}

func (m *mockAuthorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Author, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAuthorRepo) LinkToPaper(_ context.Context, authorID, paperID uuid.UUID, order int) (*domain.AuthorPaper, error) {
	return &domain.AuthorPaper{ID: uuid.New(), AuthorID: authorID, PaperID: paperID, AuthorOrder: order}, nil
}

func (m *mockAuthorRepo) ClearPaperLinks(_ context.Context, _ uuid.UUID) error { return nil }

func (m *mockAuthorRepo) ListByPaper(_ context.Context, _ uuid.UUID) ([]*domain.AuthorPaper, error) {
	return nil, nil
}

// mockAffiliationRepo implements repository.AffiliationRepository.
type mockAffiliationRepo struct{}

func (m *mockAffiliationRepo) GetOrCreate(_ context.Context, name, city, country string) (*domain.Affiliation, bool, error) {
	return &domain.Affiliation{ID: uuid.New(), Name: name, City: city, Country: country}, true, nil
}

func (m *mockAffiliationRepo) LinkToAuthorPaper(_ context.Context, _, _ uuid.UUID) error { return nil }

func (m *mockAffiliationRepo) ListByAuthorPaper(_ context.Context, _ uuid.UUID) ([]*domain.Affiliation, error) {
	return nil, nil
}

// mockKeywordRepo implements repository.KeywordRepository and records the
// key phrases stored through it.
type mockKeywordRepo struct {
	storedPhrases           []string
	linkedPhrases           int
	getOrCreateKeyPhraseErr error
	listKeyPhrasesFn        func(ctx context.Context, paperID uuid.UUID) ([]*domain.KeyPhrase, error)
}

func (m *mockKeywordRepo) GetOrCreate(_ context.Context, keyword string) (*domain.Keyword, bool, error) {
	return &domain.Keyword{ID: uuid.New(), Name: domain.NormalizeKeyword(keyword)}, true, nil
}

func (m *mockKeywordRepo) LinkToPaper(_ context.Context, _, _ uuid.UUID) error { return nil }

func (m *mockKeywordRepo) ClearPaperLinks(_ context.Context, _ uuid.UUID) error { return nil }

func (m *mockKeywordRepo) ListByPaper(_ context.Context, _ uuid.UUID) ([]*domain.Keyword, error) {
	return nil, nil
}

func (m *mockKeywordRepo) GetOrCreateKeyPhrase(_ context.Context, phrase string) (*domain.KeyPhrase, bool, error) {
	if m.getOrCreateKeyPhraseErr != nil {
		return nil, false, m.getOrCreateKeyPhraseErr
	}
	m.storedPhrases = append(m.storedPhrases, phrase)
	return &domain.KeyPhrase{ID: uuid.New(), Name: domain.NormalizeKeyword(phrase)}, true, nil
}

func (m *mockKeywordRepo) LinkKeyPhraseToPaper(_ context.Context, _, _ uuid.UUID) error {
	m.linkedPhrases++
	return nil
}

func (m *mockKeywordRepo) ListKeyPhrasesByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.KeyPhrase, error) {
	if m.listKeyPhrasesFn != nil {
		return m.listKeyPhrasesFn(ctx, paperID)
	}
	return nil, nil
}

// mockTagRepo implements repository.TagRepository.
type mockTagRepo struct {
	listFn func(ctx context.Context, kind domain.TagKind) ([]*domain.Tag, error)
}

func (m *mockTagRepo) GetOrCreate(_ context.Context, kind domain.TagKind, name string) (*domain.Tag, bool, error) {
	return &domain.Tag{ID: uuid.New(), Kind: kind, Name: name}, true, nil
}

func (m *mockTagRepo) GetByID(_ context.Context, _ domain.TagKind, _ uuid.UUID) (*domain.Tag, error) {
	return nil, domain.ErrNotFound
}

func (m *mockTagRepo) List(ctx context.Context, kind domain.TagKind) ([]*domain.Tag, error) {
	if m.listFn != nil {
		return m.listFn(ctx, kind)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Test harness
// ---------------------------------------------------------------------------

type testDeps struct {
	db        *stubDatabase
	papers    *mockPaperRepo
	authors   *mockAuthorRepo
	keywords  *mockKeywordRepo
	tags      *mockTagRepo
	registry  *metasources.Registry
	suggester *stubSuggester
}

func newTestDeps() *testDeps {
	return &testDeps{
		db:       &stubDatabase{},
		papers:   &mockPaperRepo{},
		authors:  &mockAuthorRepo{},
		keywords: &mockKeywordRepo{},
		tags:     &mockTagRepo{},
		registry: metasources.NewRegistry(),
	}
}

func newTestServer(d *testDeps) *Server {
	stores := func(_ repository.DBTX) crawler.Stores {
		return crawler.Stores{
			Papers:       d.papers,
			Authors:      d.authors,
			Affiliations: &mockAffiliationRepo{},
			Keywords:     d.keywords,
		}
	}

	var suggester Suggester
	if d.suggester != nil {
		suggester = d.suggester
	}

	return NewServer(
		Config{Address: "127.0.0.1:0"},
		d.registry,
		d.db,
		stores,
		d.papers,
		d.authors,
		d.keywords,
		d.tags,
		suggester,
		zerolog.Nop(),
		observability.NewMetrics("catalog", prometheus.NewRegistry()),
	)
}

// serveHTTP dispatches a request through the router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, r)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

func crawlBody(t *testing.T, req crawlPaperRequest) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	d := newTestDeps()
	s := newTestServer(d)

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthzUnhealthy(t *testing.T) {
	d := newTestDeps()
	d.db.healthFn = func(_ context.Context) database.HealthStatus {
		return database.HealthStatus{Status: "unhealthy", Error: "connection refused"}
	}
	s := newTestServer(d)

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReadyz(t *testing.T) {
	d := newTestDeps()
	s := newTestServer(d)

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

// ---------------------------------------------------------------------------
// Crawl
// ---------------------------------------------------------------------------

func crawlTestRecord() *domain.PaperRecord {
	rec := domain.NewPaperRecord()
	rec.Title = "Deep Residual Learning"
	rec.Abstract = "Deeper networks are harder to train."
	rec.Year = 2016
	rec.AddKeyword("Computer Vision")
	rec.Authors = []domain.RecordAuthor{{Name: "Kaiming He", Order: 1}}
	return rec
}

func TestCrawlPaper(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindSemanticScholar, &metasources.Pipeline{
		Source: &stubSource{validateOK: true, rec: crawlTestRecord()},
	})
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "semantic_scholar",
		ReferenceID: "abc123",
	}))
	rr := serveHTTP(s, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp paperResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "abc123", resp.ReferenceID)
	assert.Equal(t, "semantic_scholar", resp.SourceKind)
	assert.Equal(t, "Deep Residual Learning", resp.Title)
	assert.Equal(t, 2016, resp.YearOfPublication)
	require.Len(t, resp.Authors, 1)
	assert.Equal(t, "Kaiming He", resp.Authors[0].Name)
	require.Len(t, resp.Keywords, 1)
	assert.Equal(t, "computer vision", resp.Keywords[0].Name)
}

func TestCrawlPaperAppliesSuggestions(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindSemanticScholar, &metasources.Pipeline{
		Source: &stubSource{validateOK: true, rec: crawlTestRecord()},
	})
	d.suggester = &stubSuggester{result: suggest.Result{Phrases: []string{"residual learning", "image recognition"}}}
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "semantic_scholar",
		ReferenceID: "abc123",
	}))
	rr := serveHTTP(s, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	assert.Equal(t, "Deeper networks are harder to train.", d.suggester.text)
	assert.Equal(t, []string{"residual learning", "image recognition"}, d.keywords.storedPhrases)
	assert.Equal(t, 2, d.keywords.linkedPhrases)

	var resp paperResponse
	decodeBody(t, rr, &resp)
	require.Len(t, resp.KeyPhrases, 2)
	assert.Equal(t, "residual learning", resp.KeyPhrases[0].Name)
}

func TestCrawlPaperSuggestionFailureDoesNotFailSave(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindSemanticScholar, &metasources.Pipeline{
		Source: &stubSource{validateOK: true, rec: crawlTestRecord()},
	})
	d.suggester = &stubSuggester{result: suggest.Result{Err: errors.New("service down")}}
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "semantic_scholar",
		ReferenceID: "abc123",
	}))
	rr := serveHTTP(s, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp paperResponse
	decodeBody(t, rr, &resp)
	assert.Empty(t, resp.KeyPhrases)
	assert.Empty(t, d.keywords.storedPhrases)
}

func TestCrawlPaperSuggestionStoreFailureSkipsPhrases(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindSemanticScholar, &metasources.Pipeline{
		Source: &stubSource{validateOK: true, rec: crawlTestRecord()},
	})
	d.suggester = &stubSuggester{result: suggest.Result{Phrases: []string{"residual learning"}}}
	d.keywords.getOrCreateKeyPhraseErr = errors.New("insert failed")
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "semantic_scholar",
		ReferenceID: "abc123",
	}))
	rr := serveHTTP(s, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp paperResponse
	decodeBody(t, rr, &resp)
	assert.Empty(t, resp.KeyPhrases)
}

func TestCrawlPaperValidation(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindArXiv, &metasources.Pipeline{Source: &stubSource{validateOK: true}})
	s := newTestServer(d)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{not json"},
		{name: "missing source kind", body: `{"reference_id":"abc"}`},
		{name: "unknown source kind", body: `{"source_kind":"citeseer","reference_id":"abc"}`},
		{name: "missing reference id", body: `{"source_kind":"arxiv"}`},
		{name: "manual without title", body: `{"source_kind":"manual"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", strings.NewReader(tt.body))
			rr := serveHTTP(s, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestCrawlPaperConflict(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindArXiv, &metasources.Pipeline{Source: &stubSource{validateOK: true}})
	d.papers.getByReferenceIDFn = func(_ context.Context, referenceID string) (*domain.Paper, error) {
		return &domain.Paper{ID: uuid.New(), ReferenceID: referenceID}, nil
	}
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "arxiv",
		ReferenceID: "2101.00001",
	}))
	rr := serveHTTP(s, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCrawlPaperIdentifierNotFound(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindArXiv, &metasources.Pipeline{Source: &stubSource{validateOK: false}})
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "arxiv",
		ReferenceID: "9999.99999",
	}))
	rr := serveHTTP(s, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCrawlPaperMetadataUnavailable(t *testing.T) {
	d := newTestDeps()
	d.registry.Register(domain.SourceKindScopus, &metasources.Pipeline{
		Source: &stubSource{
			validateOK: true,
			fetchErr:   domain.NewMetadataUnavailableError(domain.SourceKindScopus, "10.1/x", errors.New("bad payload")),
		},
	})
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "scopus",
		ReferenceID: "10.1/x",
	}))
	rr := serveHTTP(s, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestCrawlPaperNoPipeline(t *testing.T) {
	d := newTestDeps()
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:  "scopus",
		ReferenceID: "10.1/x",
	}))
	rr := serveHTTP(s, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCrawlManualPaper(t *testing.T) {
	d := newTestDeps()
	d.papers.nextManualSequenceFn = func(_ context.Context) (int, error) { return 4, nil }
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers", crawlBody(t, crawlPaperRequest{
		SourceKind:        "manual",
		Title:             "Unpublished Tech Report",
		YearOfPublication: 2024,
	}))
	rr := serveHTTP(s, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp paperResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "MANUAL_ENTRY-4", resp.ReferenceID)
	assert.Equal(t, "manual", resp.SourceKind)
	assert.Equal(t, "Unpublished Tech Report", resp.Title)
	assert.Equal(t, 2024, resp.YearOfPublication)
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestRefreshPaper(t *testing.T) {
	d := newTestDeps()
	paperID := uuid.New()
	d.papers.getByIDFn = func(_ context.Context, id uuid.UUID) (*domain.Paper, error) {
		if id != paperID {
			return nil, domain.ErrNotFound
		}
		return &domain.Paper{
			ID:                paperID,
			ReferenceID:       "abc123",
			MetadataReference: domain.SourceKindSemanticScholar,
			Title:             "Old Title",
		}, nil
	}
	d.registry.Register(domain.SourceKindSemanticScholar, &metasources.Pipeline{
		Source: &stubSource{validateOK: true, rec: crawlTestRecord()},
	})
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/"+paperID.String()+"/refresh", nil)
	rr := serveHTTP(s, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp paperResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, paperID.String(), resp.ID)
	assert.Equal(t, "Deep Residual Learning", resp.Title)
}

func TestRefreshPaperNotFound(t *testing.T) {
	d := newTestDeps()
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/"+uuid.NewString()+"/refresh", nil)
	rr := serveHTTP(s, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRefreshPaperBadID(t *testing.T) {
	d := newTestDeps()
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/not-a-uuid/refresh", nil)
	rr := serveHTTP(s, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
