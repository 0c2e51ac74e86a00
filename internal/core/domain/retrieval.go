package domain

// ScopeAll disables domain filtering on retrieval.
const ScopeAll = "all"

// Document type tags stored alongside policy chunks.
const (
	DocTypePrivacy = "privacy"
	DocTypeTerms   = "terms"
	DocTypeOther   = "other"
)

type SearchFilter struct {
	Domain string
}

// RetrievedChunk is a single similarity-search hit. Domain, DocType and URL
// hold the top-level payload values; older points carry them only inside
// Metadata, so any of the three may be empty until resolved.
type RetrievedChunk struct {
	ID       string
	PolicyID int64
	Text     string
	Domain   string
	DocType  string
	URL      string
	Score    *float64
	Metadata map[string]any
}

// CollectionInfo describes the state of the vector index collection.
type CollectionInfo struct {
	Dimension   int
	Distance    string
	PointsCount uint64
}

// PolicyRef is the relational record for a chunk's parent policy document.
type PolicyRef struct {
	ID        int64
	CompanyID int64
	Domain    string
	DocType   string
	URL       string
}

type Source struct {
	URL     string  `json:"url"`
	DocType string  `json:"doc_type"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type QueryResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Grounded   bool     `json:"grounded"`
}
