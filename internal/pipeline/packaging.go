package pipeline

// Packaging assembles the final payload for the external search index. The
// index rejects null fields, so absent values are dropped entirely rather
// than sent empty. The stage performs no network I/O; transmitting the
// payload is the pusher collaborator's job.
type Packaging struct {
	steps []func(*Document) error
}

// NewPackaging builds the stage.
func NewPackaging() *Packaging {
	p := &Packaging{}
	p.steps = []func(*Document) error{p.preparePayload}
	return p
}

// Name implements Stage.
func (p *Packaging) Name() string { return "Packaging" }

// CanHandle implements Stage.
func (p *Packaging) CanHandle(*Document) bool { return true }

// Handle implements Stage.
func (p *Packaging) Handle(doc *Document) Outcome {
	return runSteps(p.Name(), doc, p.steps, func(error) string {
		return "Ingest Error"
	})
}

func (p *Packaging) preparePayload(doc *Document) error {
	payload := map[string]any{
		"id":               doc.URL,
		"url":              doc.URL,
		"popularity_score": doc.IndexPriority,
		"inlink_count":     doc.InlinkCount,
	}
	if doc.Domain != "" {
		payload["domain"] = doc.Domain
	}
	if doc.Work.Extracted {
		payload["title"] = doc.Work.Title
		payload["content"] = doc.Work.Content
	}
	if doc.Work.PublishedAt != "" {
		payload["published_at"] = doc.Work.PublishedAt
	}
	doc.Work.Payload = payload
	return nil
}
