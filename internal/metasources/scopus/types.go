package scopus

import "encoding/json"

// The citation database wraps most values in {"$": "..."} objects and
// collapses single-element arrays into bare objects. listOf absorbs both
// shapes so the decoders below stay typed.

// namedValue is the {"$": "..."} wrapper used for keyword and term names.
type namedValue struct {
	Name string `json:"$"`
}

// listOf decodes either a JSON array of T or a single bare T into a slice.
type listOf[T any] []T

func (l *listOf[T]) UnmarshalJSON(data []byte) error {
	var many []T
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = []T{one}
	return nil
}

// searchResponse is the envelope returned by the search endpoint.
type searchResponse struct {
	Results searchResults `json:"search-results"`
}

type searchResults struct {
	Entries []searchEntry `json:"entry"`
}

type searchEntry struct {
	DOI        string `json:"prism:doi"`
	Identifier string `json:"dc:identifier"`
}

// abstractResponse is the envelope returned by the abstract retrieval endpoint.
type abstractResponse struct {
	Document *abstractDocument `json:"abstracts-retrieval-response"`
}

type abstractDocument struct {
	CoreData     *coreData           `json:"coredata"`
	AuthKeywords *authKeywords       `json:"authkeywords"`
	IdxTerms     *idxTerms           `json:"idxterms"`
	SubjectAreas *subjectAreas       `json:"subject-areas"`
	Affiliations listOf[affiliation] `json:"affiliation"`
	Authors      *authorGroup        `json:"authors"`
}

type coreData struct {
	Title           string `json:"dc:title"`
	Abstract        string `json:"dc:description"`
	DOI             string `json:"prism:doi"`
	ISSN            string `json:"prism:issn"`
	PageRange       string `json:"prism:pageRange"`
	PublicationName string `json:"prism:publicationName"`
	AggregationType string `json:"prism:aggregationType"`
	Volume          string `json:"prism:volume"`
	EID             string `json:"eid"`
	PubMedID        string `json:"pubmed-id"`
	CoverDate       string `json:"prism:coverDate"`
}

type authKeywords struct {
	Keywords listOf[namedValue] `json:"author-keyword"`
}

type idxTerms struct {
	Terms listOf[namedValue] `json:"mainterm"`
}

type subjectAreas struct {
	Areas listOf[namedValue] `json:"subject-area"`
}

type affiliation struct {
	ID      string `json:"@id"`
	Name    string `json:"affilname"`
	City    string `json:"affiliation-city"`
	Country string `json:"affiliation-country"`
}

type authorGroup struct {
	Authors listOf[documentAuthor] `json:"author"`
}

type documentAuthor struct {
	GivenName    string                 `json:"ce:given-name"`
	Surname      string                 `json:"ce:surname"`
	IndexedName  string                 `json:"ce:indexed-name"`
	Sequence     string                 `json:"@seq"`
	Affiliations listOf[affiliationRef] `json:"affiliation"`
}

type affiliationRef struct {
	ID string `json:"@id"`
}
