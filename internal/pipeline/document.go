// Package pipeline implements the document evaluation chain that decides
// whether a crawled document is worth pushing into the search index.
package pipeline

// Document is one url_state row plus the transient working state for a
// single pipeline run. The persisted fields mirror the shard table columns;
// Work is owned by the chain invocation and discarded afterwards.
type Document struct {
	URL         string
	Domain      string
	ContentPath string

	FetchOK     int
	InlinkCount int
	DomainScore float64

	// IndexPriority is written by the Scoring stage; -1 marks a rejected
	// document.
	IndexPriority float64

	Work WorkContext
}

// RawDocument is the on-disk JSON format produced by the crawler.
type RawDocument struct {
	Title     *string  `json:"title"`
	Content   *string  `json:"content"`
	Timestamp *float64 `json:"timestamp"` // epoch milliseconds
	Meta      *RawMeta `json:"meta"`
}

// RawMeta carries optional page metadata.
type RawMeta struct {
	Canonical *string `json:"canonical"`
}

// WorkContext accumulates the intermediate fields the stages produce.
type WorkContext struct {
	Type      string
	Raw       RawDocument
	RawLoaded bool

	Title         string
	Content       string
	ContentLength int
	Extracted     bool
	PublishedAt   string

	QualityStatus string
	HubPage       bool
	TTR           float64
	TTRSet        bool

	Breakdown ScoreBreakdown

	Payload map[string]any
}

// ScoreBreakdown keeps the raw scoring components for observability.
type ScoreBreakdown struct {
	LinkScore    float64
	QualityScore float64
	DomainScore  float64
	Final        float64
}
