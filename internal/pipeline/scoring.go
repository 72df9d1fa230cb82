package pipeline

import "math"

// Scoring weights for the hybrid priority formula.
const (
	weightLink    = 0.4
	weightDomain  = 0.3
	weightContent = 0.3

	qualityLengthCeiling = 3000.0
)

// Scoring computes the hybrid index priority from the link graph, the
// domain signal, and the cleaned content length. It never rejects a
// document; a computation error is an unexpected stage failure.
type Scoring struct {
	steps []func(*Document) error
}

// NewScoring builds the stage.
func NewScoring() *Scoring {
	s := &Scoring{}
	s.steps = []func(*Document) error{s.calculateHybridScore}
	return s
}

// Name implements Stage.
func (s *Scoring) Name() string { return "Scoring" }

// CanHandle implements Stage. The link and domain signals are loaded with
// every row (COALESCEd at scan time), so scoring always runs once reached.
func (s *Scoring) CanHandle(*Document) bool { return true }

// Handle implements Stage.
func (s *Scoring) Handle(doc *Document) Outcome {
	return runSteps(s.Name(), doc, s.steps, reasonOrError)
}

func (s *Scoring) calculateHybridScore(doc *Document) error {
	linkScore := math.Log(1 + float64(doc.InlinkCount))
	qualityScore := math.Min(float64(doc.Work.ContentLength)/qualityLengthCeiling, 1.0)

	priority := round4(linkScore*weightLink + doc.DomainScore*weightDomain + qualityScore*weightContent)

	doc.IndexPriority = priority
	doc.Work.Breakdown = ScoreBreakdown{
		LinkScore:    linkScore,
		QualityScore: qualityScore,
		DomainScore:  doc.DomainScore,
		Final:        priority,
	}
	return nil
}
