package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litcatalog/catalog-service/internal/domain"
)

const feedWithEntry = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2101.00001v2</id>
    <title>Attention Mechanisms Reconsidered</title>
    <summary>
      We reconsider attention mechanisms in sequence models.
    </summary>
    <published>2021-01-04T18:59:12Z</published>
    <category term="cs.LG" label="Machine Learning"/>
    <category term="stat.ML"/>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <totalResults>0</totalResults>
</feed>`

func testConfig(baseURL, absBaseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		AbsBaseURL: absBaseURL,
		RateLimit:  100,
		BurstSize:  10,
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Run("identifier with an abstract page validates", func(t *testing.T) {
		var requestedPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		v := NewValidator(testConfig("", server.URL), nil)

		ok, err := v.Validate(context.Background(), "2101.00001")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "/2101.00001", requestedPath)
	})

	t.Run("unknown identifier is definitively invalid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		v := NewValidator(testConfig("", server.URL), nil)

		ok, err := v.Validate(context.Background(), "0000.00000")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("probe failure is an error, not a verdict", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		v := NewValidator(testConfig("", server.URL), nil)

		ok, err := v.Validate(context.Background(), "2101.00001")
		require.Error(t, err)
		assert.False(t, ok)
	})
}

func TestEnricher_Enrich(t *testing.T) {
	baseline := func() *domain.PaperRecord {
		rec := domain.NewPaperRecord()
		rec.Title = "Attention Mechanisms Reconsidered"
		rec.ArXivID = "2101.00001"
		return rec
	}

	t.Run("merges the first feed entry into the record", func(t *testing.T) {
		var requestedID string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedID = r.URL.Query().Get("id_list")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(feedWithEntry))
		}))
		defer server.Close()

		e := NewEnricher(testConfig(server.URL, ""), nil)
		rec := baseline()

		require.NoError(t, e.Enrich(context.Background(), "2101.00001", rec))

		assert.Equal(t, "2101.00001", requestedID)
		assert.Equal(t, "We reconsider attention mechanisms in sequence models.", rec.Abstract)

		require.NotNil(t, rec.PublicationDate)
		assert.Equal(t, time.Date(2021, 1, 4, 18, 59, 12, 0, time.UTC), *rec.PublicationDate)

		// The labeled category contributes its label, the bare one its term.
		assert.ElementsMatch(t, []string{"machine learning", "stat.ml"}, rec.Keywords())
	})

	t.Run("empty feed leaves the baseline alone", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(emptyFeed))
		}))
		defer server.Close()

		e := NewEnricher(testConfig(server.URL, ""), nil)
		rec := baseline()

		require.NoError(t, e.Enrich(context.Background(), "2101.00001", rec))
		assert.Empty(t, rec.Abstract)
		assert.Nil(t, rec.PublicationDate)
		assert.Empty(t, rec.Keywords())
	})

	t.Run("malformed feed is metadata-unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`<?xml version="1.0"?><feed><entry><summary>`))
		}))
		defer server.Close()

		e := NewEnricher(testConfig(server.URL, ""), nil)

		err := e.Enrich(context.Background(), "2101.00001", baseline())
		assert.ErrorIs(t, err, domain.ErrMetadataUnavailable)
	})

	t.Run("export failure surfaces as an API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		e := NewEnricher(testConfig(server.URL, ""), nil)

		err := e.Enrich(context.Background(), "2101.00001", baseline())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "arXiv")
	})

	t.Run("unparseable published date is omitted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <summary>Text.</summary>
    <published>not-a-date</published>
  </entry>
</feed>`))
		}))
		defer server.Close()

		e := NewEnricher(testConfig(server.URL, ""), nil)
		rec := baseline()

		require.NoError(t, e.Enrich(context.Background(), "2101.00001", rec))
		assert.Equal(t, "Text.", rec.Abstract)
		assert.Nil(t, rec.PublicationDate)
	})
}
