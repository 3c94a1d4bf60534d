package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/repository"
)

// listPapers handles GET /api/v1/papers. It returns a paginated list of
// papers, optionally filtered by source kind, keyword, tag, or author.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePaginationParams(r)

	filter := repository.PaperFilter{
		Limit:  limit,
		Offset: offset,
	}

	if kindParam := r.URL.Query().Get("source_kind"); kindParam != "" {
		kind := domain.SourceKind(kindParam)
		if !kind.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown source kind %q", kindParam))
			return
		}
		filter.SourceKind = &kind
	}

	if v := r.URL.Query().Get("keyword_id"); v != "" {
		id, ok := parseUUID(w, v, "keyword_id")
		if !ok {
			return
		}
		filter.KeywordID = &id
	}
	if v := r.URL.Query().Get("topic_id"); v != "" {
		id, ok := parseUUID(w, v, "topic_id")
		if !ok {
			return
		}
		filter.TopicID = &id
	}
	if v := r.URL.Query().Get("pathology_id"); v != "" {
		id, ok := parseUUID(w, v, "pathology_id")
		if !ok {
			return
		}
		filter.PathologyID = &id
	}
	if v := r.URL.Query().Get("method_id"); v != "" {
		id, ok := parseUUID(w, v, "method_id")
		if !ok {
			return
		}
		filter.MethodID = &id
	}
	if v := r.URL.Query().Get("author_id"); v != "" {
		id, ok := parseUUID(w, v, "author_id")
		if !ok {
			return
		}
		filter.AuthorID = &id
	}

	papers, totalCount, err := s.papers.List(ctx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:        responses,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getPaper handles GET /api/v1/papers/{paperID}. It returns the full paper
// aggregate with authors, affiliations, keywords, and suggested phrases.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.papers.GetByID(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.renderPaperDetail(w, r, paper)
}

// getPaperByReference handles GET /api/v1/papers/lookup?reference_id=...
func (s *Server) getPaperByReference(w http.ResponseWriter, r *http.Request) {
	referenceID := strings.TrimSpace(r.URL.Query().Get("reference_id"))
	if referenceID == "" {
		writeError(w, http.StatusBadRequest, "reference_id query parameter is required")
		return
	}

	paper, err := s.papers.GetByReferenceID(r.Context(), referenceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.renderPaperDetail(w, r, paper)
}

func (s *Server) renderPaperDetail(w http.ResponseWriter, r *http.Request, paper *domain.Paper) {
	ctx := r.Context()

	if err := s.papers.LoadAssociations(ctx, paper); err != nil {
		writeDomainError(w, err)
		return
	}

	resp := domainPaperToResponse(paper)

	phrases, err := s.keywords.ListKeyPhrasesByPaper(ctx, paper.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for _, p := range phrases {
		resp.KeyPhrases = append(resp.KeyPhrases, keywordResponse{ID: p.ID.String(), Name: p.Name})
	}

	writeJSON(w, http.StatusOK, resp)
}

// getAuthor handles GET /api/v1/authors/{authorID}. It returns the author
// together with a paginated list of their papers.
func (s *Server) getAuthor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authorID, ok := parseUUID(w, chi.URLParam(r, "authorID"), "author_id")
	if !ok {
		return
	}

	author, err := s.authors.GetByID(ctx, authorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	limit, offset := parsePaginationParams(r)
	papers, totalCount, err := s.papers.List(ctx, repository.PaperFilter{
		AuthorID: &authorID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, authorDetailResponse{
		Author: authorResponse{
			ID:          author.ID.String(),
			Name:        author.Name,
			IndexedName: author.IndexedName,
		},
		Papers: listPapersResponse{
			Papers:        responses,
			NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
			TotalCount:    int(totalCount),
		},
	})
}

// searchPapers handles GET /api/v1/search?q=... It performs case-insensitive
// substring search across paper titles, author names, keyword names, and
// topic names.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < minSearchLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("q must be at least %d characters", minSearchLength))
		return
	}
	if len(query) > maxSearchLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("q must be at most %d characters", maxSearchLength))
		return
	}

	limit, offset := parsePaginationParams(r)

	papers, totalCount, err := s.papers.Search(ctx, query, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:        responses,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// listTags handles GET /api/v1/tags/{kind} for the badge-style taxonomy
// tables (topics, pathologies, methods).
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	kind, ok := tagKindFromPath(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tag kind")
		return
	}

	tags, err := s.tags.List(r.Context(), kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]tagResponse, len(tags))
	for i, t := range tags {
		responses[i] = domainTagToResponse(t)
	}

	writeJSON(w, http.StatusOK, listTagsResponse{Tags: responses})
}

func tagKindFromPath(s string) (domain.TagKind, bool) {
	switch s {
	case "topics":
		return domain.TagKindTopic, true
	case "pathologies":
		return domain.TagKindPathology, true
	case "methods":
		return domain.TagKindMethod, true
	default:
		return "", false
	}
}
