package semanticscholar

// paperResponse is the paper document returned by the scholarly-graph API.
// Unknown fields are ignored; absent fields decode to zero values.
type paperResponse struct {
	PaperID string   `json:"paperId"`
	Title   string   `json:"title"`
	Venue   string   `json:"venue"`
	Year    int      `json:"year"`
	DOI     string   `json:"doi"`
	ArXivID string   `json:"arxivId"`
	URL     string   `json:"url"`
	Topics  []topic  `json:"topics"`
	Authors []author `json:"authors"`
}

type topic struct {
	Topic   string `json:"topic"`
	TopicID string `json:"topicId"`
	URL     string `json:"url"`
}

type author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

// errorResponse is the error document returned on non-2xx responses.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
