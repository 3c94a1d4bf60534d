package httpserver

import (
	"time"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// Response types for JSON serialization.

type paperResponse struct {
	ID                string            `json:"id"`
	ReferenceID       string            `json:"reference_id"`
	SourceKind        string            `json:"source_kind"`
	Title             string            `json:"title"`
	Abstract          string            `json:"abstract,omitempty"`
	Venue             string            `json:"venue,omitempty"`
	PaperURL          string            `json:"paper_url,omitempty"`
	YearOfPublication int               `json:"year_of_publication,omitempty"`
	PublicationDate   *time.Time        `json:"publication_date,omitempty"`
	DOI               string            `json:"doi,omitempty"`
	ISSN              string            `json:"issn,omitempty"`
	PageRange         string            `json:"page_range,omitempty"`
	ArticleType       string            `json:"article_type,omitempty"`
	AggregationType   string            `json:"aggregation_type,omitempty"`
	Volume            string            `json:"volume,omitempty"`
	EID               string            `json:"eid,omitempty"`
	PubMedID          string            `json:"pubmed_id,omitempty"`
	ArXivID           string            `json:"arxiv_id,omitempty"`
	SemanticScholarID string            `json:"semantic_scholar_id,omitempty"`
	PathologyID       string            `json:"pathology_id,omitempty"`
	TopicID           string            `json:"topic_id,omitempty"`
	MethodID          string            `json:"method_id,omitempty"`
	Authors           []authorResponse  `json:"authors,omitempty"`
	Keywords          []keywordResponse `json:"keywords,omitempty"`
	KeyPhrases        []keywordResponse `json:"key_phrases,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type authorResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	IndexedName  string                `json:"indexed_name,omitempty"`
	Order        int                   `json:"order,omitempty"`
	Affiliations []affiliationResponse `json:"affiliations,omitempty"`
}

type affiliationResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type keywordResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tagResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BadgeClass  string `json:"badge_class,omitempty"`
}

type listPapersResponse struct {
	Papers        []paperResponse `json:"papers"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalCount    int             `json:"total_count"`
}

type listTagsResponse struct {
	Tags []tagResponse `json:"tags"`
}

type authorDetailResponse struct {
	Author authorResponse     `json:"author"`
	Papers listPapersResponse `json:"papers"`
}

// Converter functions

func domainPaperToResponse(p *domain.Paper) paperResponse {
	resp := paperResponse{
		ID:                p.ID.String(),
		ReferenceID:       p.ReferenceID,
		SourceKind:        string(p.MetadataReference),
		Title:             p.Title,
		Abstract:          p.Abstract,
		Venue:             p.Venue,
		PaperURL:          p.PaperURL,
		YearOfPublication: p.YearOfPublication,
		PublicationDate:   p.PublicationDate,
		DOI:               p.DOI,
		ISSN:              p.ISSN,
		PageRange:         p.PageRange,
		ArticleType:       p.ArticleType,
		AggregationType:   p.AggregationType,
		Volume:            p.Volume,
		EID:               p.EID,
		PubMedID:          p.PubMedID,
		ArXivID:           p.ArXivID,
		SemanticScholarID: p.SemanticScholarID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.PathologyID != nil {
		resp.PathologyID = p.PathologyID.String()
	}
	if p.TopicID != nil {
		resp.TopicID = p.TopicID.String()
	}
	if p.MethodID != nil {
		resp.MethodID = p.MethodID.String()
	}

	for _, link := range p.Authors {
		if link.Author == nil {
			continue
		}
		author := authorResponse{
			ID:          link.Author.ID.String(),
			Name:        link.Author.Name,
			IndexedName: link.Author.IndexedName,
			Order:       link.AuthorOrder,
		}
		for _, aff := range link.Affiliations {
			author.Affiliations = append(author.Affiliations, affiliationResponse{
				ID:      aff.ID.String(),
				Name:    aff.Name,
				City:    aff.City,
				Country: aff.Country,
			})
		}
		resp.Authors = append(resp.Authors, author)
	}

	for _, k := range p.Keywords {
		resp.Keywords = append(resp.Keywords, keywordResponse{ID: k.ID.String(), Name: k.Name})
	}

	return resp
}

func domainTagToResponse(t *domain.Tag) tagResponse {
	return tagResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		BadgeClass:  t.BadgeClass,
	}
}
