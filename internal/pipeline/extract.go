package pipeline

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var copyrightPattern = regexp.MustCompile(`(?i)Copyright ©.*`)

// Extraction cleans the loaded document and normalizes its publish date.
// The domain-consistency check exists as a sub-step but is not wired into
// the processor list; it is retained for extensibility only.
type Extraction struct {
	steps []func(*Document) error
	now   func() time.Time
}

// NewExtraction builds the stage.
func NewExtraction() *Extraction {
	e := &Extraction{now: time.Now}
	e.steps = []func(*Document) error{
		e.removeBoilerplate,
		e.normalizeDate,
	}
	return e
}

// Name implements Stage.
func (e *Extraction) Name() string { return "Extraction" }

// CanHandle implements Stage. Only structured documents are extractable;
// unsupported formats pass through untouched.
func (e *Extraction) CanHandle(doc *Document) bool {
	return doc.Work.RawLoaded
}

// Handle implements Stage.
func (e *Extraction) Handle(doc *Document) Outcome {
	return runSteps(e.Name(), doc, e.steps, reasonOrError)
}

func (e *Extraction) removeBoilerplate(doc *Document) error {
	raw := doc.Work.Raw
	title := strDeref(raw.Title)
	content := strDeref(raw.Content)

	content = strings.TrimSpace(copyrightPattern.ReplaceAllString(content, ""))
	if title != "" && strings.HasPrefix(content, title) {
		content = strings.TrimSpace(content[len(title):])
	}

	doc.Work.Title = title
	doc.Work.Content = content
	doc.Work.ContentLength = utf8.RuneCountInString(content)
	doc.Work.Extracted = true
	return nil
}

func (e *Extraction) normalizeDate(doc *Document) error {
	ts := doc.Work.Raw.Timestamp
	if ts != nil {
		doc.Work.PublishedAt = time.UnixMilli(int64(*ts)).Format(time.RFC3339)
		return nil
	}
	doc.Work.PublishedAt = e.now().Format(time.RFC3339)
	return nil
}

// checkDomainConsistency would compare the record's domain against the
// canonical URL from page metadata. Disabled by default.
func (e *Extraction) checkDomainConsistency(doc *Document) error {
	canonical := ""
	if doc.Work.Raw.Meta != nil {
		canonical = strDeref(doc.Work.Raw.Meta.Canonical)
	}
	if canonical != "" && doc.Domain != "" && !strings.Contains(canonical, doc.Domain) {
		return Reject("Domain mismatch")
	}
	return nil
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
