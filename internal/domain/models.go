// Package domain provides domain models and business logic for the catalog service.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies which external bibliographic system a paper's
// reference identifier belongs to.
// These values must match the database enum source_kind.
type SourceKind string

const (
	// SourceKindSemanticScholar is the generic scholarly-graph source.
	// Identifiers may be Semantic Scholar paper IDs, DOIs, or arXiv IDs.
	SourceKindSemanticScholar SourceKind = "semantic_scholar"

	// SourceKindScopus is the commercial citation database source,
	// looked up by DOI.
	SourceKindScopus SourceKind = "scopus"

	// SourceKindArXiv is the preprint repository source, looked up by
	// arXiv identifier.
	SourceKindArXiv SourceKind = "arxiv"

	// SourceKindManual is a manually entered paper with a synthetic
	// reference identifier. No crawler runs for this kind.
	SourceKindManual SourceKind = "manual"
)

// ManualReferencePrefix is the prefix of synthetic reference identifiers
// assigned to manually entered papers.
const ManualReferencePrefix = "MANUAL_ENTRY"

// Valid returns true if the source kind is one of the known values.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindSemanticScholar, SourceKindScopus, SourceKindArXiv, SourceKindManual:
		return true
	default:
		return false
	}
}

// ManualReferenceID formats the synthetic reference identifier for the
// n-th manually entered paper.
func ManualReferenceID(n int) string {
	return fmt.Sprintf("%s-%d", ManualReferencePrefix, n)
}

// ManualSequence extracts the sequence number from a manual reference
// identifier. Returns 0 and false when the identifier is not a
// well-formed manual reference.
func ManualSequence(referenceID string) (int, bool) {
	rest, ok := strings.CutPrefix(referenceID, ManualReferencePrefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Author is a persisted paper author. Dedup is by case-insensitive name.
type Author struct {
	ID uuid.UUID

	// Name is the display form, sanitized (trimmed, punctuation stripped).
	Name string

	// IndexedName is the alternate indexed form provided by the citation
	// database, e.g. "Smith A.". Empty when the source does not supply one.
	IndexedName string

	CreatedAt time.Time
}

// Affiliation is a persisted institution. Dedup is by exact name;
// city and country are first-seen and never overwritten by later crawls.
type Affiliation struct {
	ID      uuid.UUID
	Name    string
	City    string
	Country string

	CreatedAt time.Time
}

// Keyword is a persisted tag term, stored lowercase and unique.
type Keyword struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// TagKind distinguishes the badge-style taxonomy tables.
type TagKind string

const (
	TagKindTopic     TagKind = "topic"
	TagKindPathology TagKind = "pathology"
	TagKindMethod    TagKind = "method"
)

// Tag is a badge-style taxonomy entity (topic, pathology, or method).
type Tag struct {
	ID          uuid.UUID
	Kind        TagKind
	Name        string
	Description string
	BadgeClass  string
	CreatedAt   time.Time
}

// KeyPhrase is a best-effort suggested keyword produced by the
// text-analytics side service. Stored lowercase and unique, linked to
// papers many-to-many.
type KeyPhrase struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// AuthorPaper links an Author to a Paper at an explicit 1-based position
// in the author list, carrying the affiliations the citation database
// reported for that author on that paper.
type AuthorPaper struct {
	ID       uuid.UUID
	AuthorID uuid.UUID
	PaperID  uuid.UUID

	// AuthorOrder is 1-based and unique within a paper's author list.
	// Gaplessness is conventional, not enforced.
	AuthorOrder int

	// Author is the resolved author entity, populated on reads that join.
	Author *Author

	Affiliations []*Affiliation
}

// Paper is the aggregate root produced by a crawl.
type Paper struct {
	ID uuid.UUID

	// ReferenceID is the unique external identifier the paper was crawled
	// by (DOI, Semantic Scholar ID, arXiv ID, or MANUAL_ENTRY-<n>).
	// Immutable once validated.
	ReferenceID string

	// MetadataReference records which source kind the reference belongs to.
	MetadataReference SourceKind

	Title    string
	Abstract string
	Venue    string
	PaperURL string

	// YearOfPublication is zero when the source did not report a year.
	YearOfPublication int

	// PublicationDate is nil when no source supplied a parseable date.
	PublicationDate *time.Time

	// Citation-database metadata. Optional text fields default to the
	// empty string so display code never handles nulls.
	DOI             string
	ISSN            string
	PageRange       string
	ArticleType     string
	AggregationType string
	Volume          string
	EID             string
	PubMedID        string

	// Preprint / scholarly-graph metadata.
	ArXivID            string
	SemanticScholarID  string
	SemanticScholarURL string

	PathologyID *uuid.UUID
	TopicID     *uuid.UUID
	MethodID    *uuid.UUID

	// Authors is the ordered author list, populated by the crawler and
	// on reads that join through author_papers.
	Authors []*AuthorPaper

	// Keywords is the resolved tag set for this paper.
	Keywords []*Keyword

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsManual reports whether the paper was entered manually rather than crawled.
func (p *Paper) IsManual() bool {
	return p.MetadataReference == SourceKindManual
}

// AuthorsShort renders the conventional "First Author (et al.), year" label
// used on list pages.
func (p *Paper) AuthorsShort() string {
	if len(p.Authors) == 0 || p.Authors[0].Author == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(p.Authors[0].Author.Name)
	if len(p.Authors) > 1 {
		sb.WriteString(" (et al.)")
	}
	if p.YearOfPublication > 0 {
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(p.YearOfPublication))
	}
	return sb.String()
}
