package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/litcatalog/catalog-service/internal/crawler"
	"github.com/litcatalog/catalog-service/internal/domain"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	minSearchLength    = 2
	maxSearchLength    = 500
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// crawlPaperRequest is the JSON request body for crawling a paper into the
// catalog. For manual entries the metadata fields are supplied directly;
// for every other source kind only the reference identifier matters.
type crawlPaperRequest struct {
	SourceKind  string `json:"source_kind" validate:"required,oneof=semantic_scholar scopus arxiv manual"`
	ReferenceID string `json:"reference_id" validate:"required_unless=SourceKind manual,omitempty,max=500"`

	Title             string `json:"title" validate:"required_if=SourceKind manual,omitempty,max=4000"`
	Abstract          string `json:"abstract" validate:"omitempty,max=100000"`
	Venue             string `json:"venue" validate:"omitempty,max=1000"`
	PaperURL          string `json:"paper_url" validate:"omitempty,url,max=2000"`
	YearOfPublication int    `json:"year_of_publication" validate:"omitempty,gte=1000,lte=2100"`
	DOI               string `json:"doi" validate:"omitempty,max=500"`
}

// crawlPaper handles POST /api/v1/papers. It runs a full crawl for the
// given source kind and identifier, or stores a manual entry directly.
func (s *Server) crawlPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req crawlPaperRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	kind := domain.SourceKind(req.SourceKind)

	var existing *domain.Paper
	if kind == domain.SourceKindManual {
		existing = &domain.Paper{
			Title:             req.Title,
			Abstract:          req.Abstract,
			Venue:             req.Venue,
			PaperURL:          req.PaperURL,
			YearOfPublication: req.YearOfPublication,
			DOI:               req.DOI,
		}
	} else {
		// A paper already crawled under this identifier is refreshed via
		// the refresh endpoint, not re-created.
		if _, err := s.papers.GetByReferenceID(ctx, req.ReferenceID); err == nil {
			writeError(w, http.StatusConflict, "paper already exists for this reference id")
			return
		} else if !errors.Is(err, domain.ErrNotFound) {
			writeDomainError(w, err)
			return
		}
	}

	c, err := crawler.New(kind, req.ReferenceID, s.registry, s.db, s.stores, s.logger, s.metrics)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	paper, err := c.Crawl(ctx, existing)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := domainPaperToResponse(paper)
	resp.KeyPhrases = s.applySuggestions(ctx, paper)

	writeJSON(w, http.StatusCreated, resp)
}

// refreshPaper handles POST /api/v1/papers/{paperID}/refresh. It re-crawls
// the paper's source and replaces its metadata and entity links in place.
func (s *Server) refreshPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.papers.GetByID(ctx, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := crawler.New(paper.MetadataReference, paper.ReferenceID, s.registry, s.db, s.stores, s.logger, s.metrics)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	refreshed, err := c.Crawl(ctx, paper)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := domainPaperToResponse(refreshed)
	resp.KeyPhrases = s.applySuggestions(ctx, refreshed)

	writeJSON(w, http.StatusOK, resp)
}

// applySuggestions runs the best-effort key-phrase side call and stores the
// suggestions. It never fails the request: the paper is already saved, and
// a suggestion outage only costs the phrases.
func (s *Server) applySuggestions(ctx context.Context, paper *domain.Paper) []keywordResponse {
	if s.suggester == nil || paper.Abstract == "" {
		return nil
	}

	res := s.suggester.KeyPhrases(ctx, paper.Abstract)
	if res.Err != nil {
		s.metrics.RecordSuggestion(0, true)
		s.logger.Warn().Err(res.Err).
			Str("paper_id", paper.ID.String()).
			Msg("key-phrase suggestion failed")
		return nil
	}

	var out []keywordResponse
	for _, phrase := range res.Phrases {
		kp, _, err := s.keywords.GetOrCreateKeyPhrase(ctx, phrase)
		if err != nil {
			s.logger.Warn().Err(err).Str("phrase", phrase).Msg("storing suggested phrase failed")
			continue
		}
		if err := s.keywords.LinkKeyPhraseToPaper(ctx, kp.ID, paper.ID); err != nil {
			s.logger.Warn().Err(err).Str("phrase", phrase).Msg("linking suggested phrase failed")
			continue
		}
		out = append(out, keywordResponse{ID: kp.ID.String(), Name: kp.Name})
	}
	s.metrics.RecordSuggestion(len(res.Phrases), false)
	return out
}

// writeDomainError maps domain errors to HTTP status codes and writes a
// JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var apiErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, domain.ErrIdentifierNotFound):
		writeError(w, http.StatusUnprocessableEntity, "identifier not found at source")
	case errors.Is(err, domain.ErrMetadataUnavailable):
		writeError(w, http.StatusBadGateway, "source metadata could not be decoded")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, "upstream source error")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeValidationError writes a 400 with the first failed field spelled out.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		writeError(w, http.StatusBadRequest, fmt.Sprintf("validation failed on field %q (%s)", fe.Field(), fe.Tag()))
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request")
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
