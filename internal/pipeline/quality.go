package pipeline

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Quality filter thresholds. Lengths are rune counts.
const (
	minContentLength  = 50
	hubInlinkFloor    = 100
	soft404MaxLength  = 200
	soft404ScanPrefix = 100
	ttrMinTokens      = 100
	ttrFloor          = 0.15
	artifactMinLength = 100
	artifactMaxRatio  = 0.10
)

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	symbolPattern = regexp.MustCompile(`[{};"\[\]]`)
)

var artifactPrefixes = []string{`{"`, `['`, `function(`}

// QualityFilter is the decision-dense gate of the chain. Sub-checks run in
// strict order and the first rejection terminates the stage.
type QualityFilter struct {
	steps []func(*Document) error
}

// NewQualityFilter builds the stage.
func NewQualityFilter() *QualityFilter {
	q := &QualityFilter{}
	q.steps = []func(*Document) error{
		q.checkLengthAndRescue,
		q.checkSoft404,
		q.checkInformationDensity,
		q.checkParserArtifacts,
	}
	return q
}

// Name implements Stage.
func (q *QualityFilter) Name() string { return "QualityFilter" }

// CanHandle implements Stage. The filter is never skipped: an absent
// working context is itself a failure, handled in Handle.
func (q *QualityFilter) CanHandle(*Document) bool { return true }

// Handle implements Stage.
func (q *QualityFilter) Handle(doc *Document) Outcome {
	if !doc.Work.Extracted {
		return Outcome{Success: false, Stage: q.Name(), Reason: "Missing content"}
	}
	return runSteps(q.Name(), doc, q.steps, reasonOrError)
}

// checkLengthAndRescue rejects short content unless the page is a
// high-authority hub, in which case the document is kept and the remaining
// density checks are skipped (short-text TTR is meaningless).
func (q *QualityFilter) checkLengthAndRescue(doc *Document) error {
	if doc.Work.ContentLength < minContentLength {
		if doc.InlinkCount > hubInlinkFloor {
			doc.Work.QualityStatus = "Rescued"
			doc.Work.HubPage = true
			return nil
		}
		return Reject("Content too short")
	}
	doc.Work.QualityStatus = "OK"
	doc.Work.HubPage = false
	return nil
}

// checkSoft404 scans the flattened multilingual keyword set against the
// title and the head of the content. Long pages are never soft 404s, even
// on a keyword hit.
func (q *QualityFilter) checkSoft404(doc *Document) error {
	if doc.Work.ContentLength >= soft404MaxLength {
		return nil
	}
	title := strings.ToLower(doc.Work.Title)
	content := strings.ToLower(doc.Work.Content)
	head := runePrefix(content, soft404ScanPrefix)
	for _, k := range soft404Keywords {
		if strings.Contains(title, k) {
			return Reject("Soft 404")
		}
		if strings.Contains(head, k) {
			return Reject("Soft 404")
		}
	}
	return nil
}

// checkInformationDensity computes the type-token ratio to catch keyword
// stuffing. Hub pages are exempt.
func (q *QualityFilter) checkInformationDensity(doc *Document) error {
	if doc.Work.HubPage {
		return nil
	}
	tokens := tokenize(doc.Work.Content)
	if len(tokens) == 0 {
		return Reject("No valid words found")
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		unique[tok] = struct{}{}
	}
	ttr := round4(float64(len(unique)) / float64(len(tokens)))
	doc.Work.TTR = ttr
	doc.Work.TTRSet = true
	if len(tokens) > ttrMinTokens && ttr < ttrFloor {
		return Reject("Low TTR")
	}
	return nil
}

// checkParserArtifacts catches pages where the crawler captured raw code or
// JSON instead of prose. Short content is exempt to avoid false positives.
func (q *QualityFilter) checkParserArtifacts(doc *Document) error {
	content := doc.Work.Content
	length := doc.Work.ContentLength
	if length < artifactMinLength {
		return nil
	}
	symbols := len(symbolPattern.FindAllString(content, -1))
	ratio := float64(symbols) / float64(length)
	if ratio > artifactMaxRatio {
		return Reject("High density of code symbols (%.2f%%). Likely Parse Error.", ratio*100)
	}
	trimmed := strings.TrimSpace(content)
	for _, prefix := range artifactPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return Reject("Content looks like Raw JSON or JS Code")
		}
	}
	return nil
}

func tokenize(content string) []string {
	words := wordPattern.FindAllString(content, -1)
	tokens := words[:0:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
