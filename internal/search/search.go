package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Building string `json:"building"`
	Status   string `json:"status"`
}

// Query describes a search request over jobs.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over jobs.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// JobRecord is the data we index for a job.
type JobRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Building    string `json:"building"`
	Status      string `json:"status"`
}
