package pipeline

import (
	"encoding/json"
	"os"
	"strings"
)

// ContentLoad reads the raw crawled document from its content path. Only the
// structured JSON format is supported; any other extension is a no-op and
// later stages decide what an empty working context means.
type ContentLoad struct {
	steps []func(*Document) error
}

// NewContentLoad builds the stage.
func NewContentLoad() *ContentLoad {
	c := &ContentLoad{}
	c.steps = []func(*Document) error{c.readData}
	return c
}

// Name implements Stage.
func (c *ContentLoad) Name() string { return "ContentLoad" }

// CanHandle implements Stage. Every document is eligible for loading.
func (c *ContentLoad) CanHandle(*Document) bool { return true }

// Handle implements Stage. I/O and parse failures are per-document,
// recorded, and never fatal to the batch.
func (c *ContentLoad) Handle(doc *Document) Outcome {
	return runSteps(c.Name(), doc, c.steps, func(error) string {
		return "read content error"
	})
}

func (c *ContentLoad) readData(doc *Document) error {
	doc.Work = WorkContext{}
	if !strings.HasSuffix(strings.ToLower(doc.ContentPath), ".json") {
		return nil
	}
	raw, err := os.ReadFile(doc.ContentPath)
	if err != nil {
		return err
	}
	var parsed RawDocument
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return err
	}
	doc.Work.Type = "json"
	doc.Work.Raw = parsed
	doc.Work.RawLoaded = true
	return nil
}
