package crawler

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/repository"
)

// memTransactor runs the transaction function directly, without a
// database. The nil pgx.Tx is fine because the memory stores ignore
// their handle.
type memTransactor struct {
	calls    int
	beginErr error
}

func (t *memTransactor) WithTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	if t.beginErr != nil {
		return t.beginErr
	}
	t.calls++
	return fn(nil)
}

// memDB holds the shared state behind the in-memory repositories. A single
// instance backs every "transaction" so tests can inspect what a crawl
// persisted.
type memDB struct {
	papers       map[string]*domain.Paper
	authors      []*domain.Author
	affiliations []*domain.Affiliation
	keywords     []*domain.Keyword
	keyPhrases   []*domain.KeyPhrase

	authorLinks  []*domain.AuthorPaper
	keywordLinks map[uuid.UUID][]uuid.UUID
	affLinks     map[uuid.UUID][]uuid.UUID
	phraseLinks  map[uuid.UUID][]uuid.UUID

	upsertErr error
}

func newMemDB() *memDB {
	return &memDB{
		papers:       make(map[string]*domain.Paper),
		keywordLinks: make(map[uuid.UUID][]uuid.UUID),
		affLinks:     make(map[uuid.UUID][]uuid.UUID),
		phraseLinks:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (db *memDB) factory(_ repository.DBTX) Stores {
	return Stores{
		Papers:       &memPapers{db: db},
		Authors:      &memAuthors{db: db},
		Affiliations: &memAffiliations{db: db},
		Keywords:     &memKeywords{db: db},
	}
}

func (db *memDB) keywordByID(id uuid.UUID) *domain.Keyword {
	for _, k := range db.keywords {
		if k.ID == id {
			return k
		}
	}
	return nil
}

type memPapers struct {
	db *memDB
}

func (r *memPapers) Upsert(_ context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if r.db.upsertErr != nil {
		return nil, r.db.upsertErr
	}
	if stored, ok := r.db.papers[paper.ReferenceID]; ok {
		paper.ID = stored.ID
	} else if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	r.db.papers[paper.ReferenceID] = paper
	return paper, nil
}

func (r *memPapers) GetByID(_ context.Context, id uuid.UUID) (*domain.Paper, error) {
	for _, p := range r.db.papers {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (r *memPapers) GetByReferenceID(_ context.Context, referenceID string) (*domain.Paper, error) {
	if p, ok := r.db.papers[referenceID]; ok {
		return p, nil
	}
	return nil, domain.NewNotFoundError("paper", referenceID)
}

func (r *memPapers) NextManualSequence(_ context.Context) (int, error) {
	next := 1
	for ref := range r.db.papers {
		if n, ok := domain.ManualSequence(ref); ok && n >= next {
			next = n + 1
		}
	}
	return next, nil
}

func (r *memPapers) Search(_ context.Context, _ string, _, _ int) ([]*domain.Paper, int64, error) {
	return nil, 0, nil
}

func (r *memPapers) List(_ context.Context, _ repository.PaperFilter) ([]*domain.Paper, int64, error) {
	return nil, 0, nil
}

func (r *memPapers) LoadAssociations(_ context.Context, _ *domain.Paper) error {
	return nil
}

type memAuthors struct {
	db *memDB
}

func (r *memAuthors) GetOrCreate(_ context.Context, name, indexedName string) (*domain.Author, bool, error) {
	for _, a := range r.db.authors {
		if strings.EqualFold(a.Name, name) {
			if a.IndexedName == "" && indexedName != "" {
				a.IndexedName = indexedName
			}
			return a, false, nil
		}
	}
	a := &domain.Author{ID: uuid.New(), Name: name, IndexedName: indexedName}
	r.db.authors = append(r.db.authors, a)
	return a, true, nil
}

func (r *memAuthors) GetByID(_ context.Context, id uuid.UUID) (*domain.Author, error) {
	for _, a := range r.db.authors {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.NewNotFoundError("author", id.String())
}

func (r *memAuthors) LinkToPaper(_ context.Context, authorID, paperID uuid.UUID, order int) (*domain.AuthorPaper, error) {
	for _, link := range r.db.authorLinks {
		if link.AuthorID == authorID && link.PaperID == paperID {
			link.AuthorOrder = order
			return link, nil
		}
	}
	link := &domain.AuthorPaper{ID: uuid.New(), AuthorID: authorID, PaperID: paperID, AuthorOrder: order}
	r.db.authorLinks = append(r.db.authorLinks, link)
	return link, nil
}

func (r *memAuthors) ClearPaperLinks(_ context.Context, paperID uuid.UUID) error {
	kept := r.db.authorLinks[:0]
	for _, link := range r.db.authorLinks {
		if link.PaperID == paperID {
			delete(r.db.affLinks, link.ID)
			continue
		}
		kept = append(kept, link)
	}
	r.db.authorLinks = kept
	return nil
}

func (r *memAuthors) ListByPaper(_ context.Context, paperID uuid.UUID) ([]*domain.AuthorPaper, error) {
	var out []*domain.AuthorPaper
	for _, link := range r.db.authorLinks {
		if link.PaperID == paperID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthorOrder < out[j].AuthorOrder })
	return out, nil
}

type memAffiliations struct {
	db *memDB
}

func (r *memAffiliations) GetOrCreate(_ context.Context, name, city, country string) (*domain.Affiliation, bool, error) {
	for _, a := range r.db.affiliations {
		if a.Name == name {
			return a, false, nil
		}
	}
	a := &domain.Affiliation{ID: uuid.New(), Name: name, City: city, Country: country}
	r.db.affiliations = append(r.db.affiliations, a)
	return a, true, nil
}

func (r *memAffiliations) LinkToAuthorPaper(_ context.Context, authorPaperID, affiliationID uuid.UUID) error {
	for _, id := range r.db.affLinks[authorPaperID] {
		if id == affiliationID {
			return nil
		}
	}
	r.db.affLinks[authorPaperID] = append(r.db.affLinks[authorPaperID], affiliationID)
	return nil
}

func (r *memAffiliations) ListByAuthorPaper(_ context.Context, authorPaperID uuid.UUID) ([]*domain.Affiliation, error) {
	var out []*domain.Affiliation
	for _, id := range r.db.affLinks[authorPaperID] {
		for _, a := range r.db.affiliations {
			if a.ID == id {
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memKeywords struct {
	db *memDB
}

func (r *memKeywords) GetOrCreate(_ context.Context, keyword string) (*domain.Keyword, bool, error) {
	normalized := domain.NormalizeKeyword(keyword)
	for _, k := range r.db.keywords {
		if k.Name == normalized {
			return k, false, nil
		}
	}
	k := &domain.Keyword{ID: uuid.New(), Name: normalized}
	r.db.keywords = append(r.db.keywords, k)
	return k, true, nil
}

func (r *memKeywords) LinkToPaper(_ context.Context, keywordID, paperID uuid.UUID) error {
	for _, id := range r.db.keywordLinks[paperID] {
		if id == keywordID {
			return nil
		}
	}
	r.db.keywordLinks[paperID] = append(r.db.keywordLinks[paperID], keywordID)
	return nil
}

func (r *memKeywords) ClearPaperLinks(_ context.Context, paperID uuid.UUID) error {
	delete(r.db.keywordLinks, paperID)
	return nil
}

func (r *memKeywords) ListByPaper(_ context.Context, paperID uuid.UUID) ([]*domain.Keyword, error) {
	var out []*domain.Keyword
	for _, id := range r.db.keywordLinks[paperID] {
		if k := r.db.keywordByID(id); k != nil {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memKeywords) GetOrCreateKeyPhrase(_ context.Context, phrase string) (*domain.KeyPhrase, bool, error) {
	normalized := domain.NormalizeKeyword(phrase)
	for _, p := range r.db.keyPhrases {
		if p.Name == normalized {
			return p, false, nil
		}
	}
	p := &domain.KeyPhrase{ID: uuid.New(), Name: normalized}
	r.db.keyPhrases = append(r.db.keyPhrases, p)
	return p, true, nil
}

func (r *memKeywords) LinkKeyPhraseToPaper(_ context.Context, keyPhraseID, paperID uuid.UUID) error {
	for _, id := range r.db.phraseLinks[paperID] {
		if id == keyPhraseID {
			return nil
		}
	}
	r.db.phraseLinks[paperID] = append(r.db.phraseLinks[paperID], keyPhraseID)
	return nil
}

func (r *memKeywords) ListKeyPhrasesByPaper(_ context.Context, paperID uuid.UUID) ([]*domain.KeyPhrase, error) {
	var out []*domain.KeyPhrase
	for _, id := range r.db.phraseLinks[paperID] {
		for _, p := range r.db.keyPhrases {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
