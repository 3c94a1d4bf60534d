package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// whitespaceRegex matches one or more whitespace characters.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// punctuationReplacer strips ASCII punctuation from author display names.
var punctuationReplacer = func() *strings.Replacer {
	const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	pairs := make([]string, 0, len(punctuation)*2)
	for _, r := range punctuation {
		pairs = append(pairs, string(r), "")
	}
	return strings.NewReplacer(pairs...)
}()

// SanitizeAuthorName trims surrounding whitespace and strips all
// punctuation characters from an author display name, then collapses any
// internal whitespace runs left behind.
func SanitizeAuthorName(name string) string {
	n := punctuationReplacer.Replace(strings.TrimSpace(name))
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(n, " "))
}

// NormalizeKeyword normalizes a keyword string by lowercasing, trimming
// surrounding whitespace, and collapsing internal whitespace runs.
// Keywords are stored and deduplicated in this form.
func NormalizeKeyword(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRegex.ReplaceAllString(strings.ToLower(s), " ")
}

// RecordAuthor is one entry of a normalized author list.
type RecordAuthor struct {
	// Name is the sanitized display name.
	Name string

	// IndexedName is the citation database's indexed form, when known.
	IndexedName string

	// Order is the 1-based position in the source's author array.
	Order int

	// AffiliationIDs are source-internal affiliation ids this author
	// references. Resolved against the record's Affiliations map.
	AffiliationIDs []string
}

// RecordAffiliation is a normalized institution entry keyed by the
// source-internal affiliation id.
type RecordAffiliation struct {
	Name    string
	City    string
	Country string
}

// PaperRecord is the normalized, source-independent form of one crawled
// paper. It is produced once per crawl by the source adapters, optionally
// extended by enrichment passes, and consumed immediately by the entity
// resolver. It is never persisted directly.
type PaperRecord struct {
	Title    string
	Abstract string
	Venue    string
	PaperURL string

	Year            int
	PublicationDate *time.Time

	DOI             string
	ISSN            string
	PageRange       string
	ArticleType     string
	AggregationType string
	Volume          string
	EID             string
	PubMedID        string

	ArXivID            string
	SemanticScholarID  string
	SemanticScholarURL string

	Authors []RecordAuthor

	// keywords is the deduplicated, normalized keyword set.
	keywords map[string]struct{}

	// Affiliations maps source-internal affiliation ids to institutions.
	// Populated only by the citation-db enrichment pass.
	Affiliations map[string]RecordAffiliation
}

// NewPaperRecord creates an empty normalized record.
func NewPaperRecord() *PaperRecord {
	return &PaperRecord{
		keywords:     make(map[string]struct{}),
		Affiliations: make(map[string]RecordAffiliation),
	}
}

// AddKeyword normalizes and adds a keyword candidate to the record's set.
// Empty candidates are ignored.
func (r *PaperRecord) AddKeyword(s string) {
	if r.keywords == nil {
		r.keywords = make(map[string]struct{})
	}
	if kw := NormalizeKeyword(s); kw != "" {
		r.keywords[kw] = struct{}{}
	}
}

// AddKeywords adds every candidate in the slice.
func (r *PaperRecord) AddKeywords(candidates []string) {
	for _, c := range candidates {
		r.AddKeyword(c)
	}
}

// Keywords returns the normalized keyword set in sorted order.
func (r *PaperRecord) Keywords() []string {
	out := make([]string, 0, len(r.keywords))
	for kw := range r.keywords {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// AddAffiliation registers an institution under its source-internal id.
// Entries with an empty name are ignored.
func (r *PaperRecord) AddAffiliation(sourceID string, aff RecordAffiliation) {
	if aff.Name == "" {
		return
	}
	if r.Affiliations == nil {
		r.Affiliations = make(map[string]RecordAffiliation)
	}
	r.Affiliations[sourceID] = aff
}

// AuthorByName finds a record author by case-insensitive display-name
// match. Returns nil when the author list has no such entry.
func (r *PaperRecord) AuthorByName(name string) *RecordAuthor {
	for i := range r.Authors {
		if strings.EqualFold(r.Authors[i].Name, name) {
			return &r.Authors[i]
		}
	}
	return nil
}

// ApplyToPaper copies the record's normalized fields onto a paper
// aggregate. Blank record fields do not blank out previously fetched
// values, so enrichment layering and re-crawls only ever add or refresh.
func (r *PaperRecord) ApplyToPaper(p *Paper) {
	setIfPresent(&p.Title, r.Title)
	setIfPresent(&p.Abstract, r.Abstract)
	setIfPresent(&p.Venue, r.Venue)
	setIfPresent(&p.PaperURL, r.PaperURL)
	if r.Year > 0 {
		p.YearOfPublication = r.Year
	}
	if r.PublicationDate != nil {
		d := *r.PublicationDate
		p.PublicationDate = &d
	}
	setIfPresent(&p.DOI, r.DOI)
	setIfPresent(&p.ISSN, r.ISSN)
	setIfPresent(&p.PageRange, r.PageRange)
	setIfPresent(&p.ArticleType, r.ArticleType)
	setIfPresent(&p.AggregationType, r.AggregationType)
	setIfPresent(&p.Volume, r.Volume)
	setIfPresent(&p.EID, r.EID)
	setIfPresent(&p.PubMedID, r.PubMedID)
	setIfPresent(&p.ArXivID, r.ArXivID)
	setIfPresent(&p.SemanticScholarID, r.SemanticScholarID)
	setIfPresent(&p.SemanticScholarURL, r.SemanticScholarURL)
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
