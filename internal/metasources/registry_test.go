package metasources

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litcatalog/catalog-service/internal/domain"
)

func TestRegistry(t *testing.T) {
	t.Run("returns registered pipelines", func(t *testing.T) {
		reg := NewRegistry()
		p := &Pipeline{Source: &fakeSource{name: "s2"}}

		reg.Register(domain.SourceKindSemanticScholar, p)

		got, ok := reg.Pipeline(domain.SourceKindSemanticScholar)
		require.True(t, ok)
		assert.Same(t, p, got)
	})

	t.Run("reports false for unregistered kinds", func(t *testing.T) {
		reg := NewRegistry()

		got, ok := reg.Pipeline(domain.SourceKindManual)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("re-registering replaces the pipeline", func(t *testing.T) {
		reg := NewRegistry()
		first := &Pipeline{Source: &fakeSource{name: "first"}}
		second := &Pipeline{Source: &fakeSource{name: "second"}}

		reg.Register(domain.SourceKindArXiv, first)
		reg.Register(domain.SourceKindArXiv, second)

		got, ok := reg.Pipeline(domain.SourceKindArXiv)
		require.True(t, ok)
		assert.Same(t, second, got)
	})

	t.Run("lists registered kinds", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(domain.SourceKindSemanticScholar, &Pipeline{})
		reg.Register(domain.SourceKindScopus, &Pipeline{})
		reg.Register(domain.SourceKindArXiv, &Pipeline{})

		kinds := reg.Kinds()
		assert.ElementsMatch(t, []domain.SourceKind{
			domain.SourceKindSemanticScholar,
			domain.SourceKindScopus,
			domain.SourceKindArXiv,
		}, kinds)
	})

	t.Run("is safe for concurrent use", func(t *testing.T) {
		reg := NewRegistry()

		var wg sync.WaitGroup
		kinds := []domain.SourceKind{
			domain.SourceKindSemanticScholar,
			domain.SourceKindScopus,
			domain.SourceKindArXiv,
		}
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				reg.Register(kinds[i%len(kinds)], &Pipeline{})
			}(i)
			go func(i int) {
				defer wg.Done()
				reg.Pipeline(kinds[i%len(kinds)])
				reg.Kinds()
			}(i)
		}
		wg.Wait()

		assert.Len(t, reg.Kinds(), len(kinds))
	})
}
