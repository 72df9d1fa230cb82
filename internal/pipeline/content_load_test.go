package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeContentFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestContentLoadParsesJSONDocument(t *testing.T) {
	t.Parallel()

	path := writeContentFile(t, "page.json",
		`{"title":"T","content":"C","timestamp":1700000000000,"meta":{"canonical":"https://example.com/p"}}`)
	doc := &Document{URL: "https://example.com/p", ContentPath: path}

	out := NewContentLoad().Handle(doc)

	require.True(t, out.Success)
	require.True(t, doc.Work.RawLoaded)
	require.Equal(t, "json", doc.Work.Type)
	require.Equal(t, "T", *doc.Work.Raw.Title)
	require.Equal(t, "C", *doc.Work.Raw.Content)
	require.Equal(t, float64(1700000000000), *doc.Work.Raw.Timestamp)
}

func TestContentLoadIgnoresUnsupportedFormat(t *testing.T) {
	t.Parallel()

	path := writeContentFile(t, "page.html", "<html></html>")
	doc := &Document{ContentPath: path}

	out := NewContentLoad().Handle(doc)

	require.True(t, out.Success)
	require.False(t, doc.Work.RawLoaded)
	require.Empty(t, doc.Work.Type)
}

func TestContentLoadFailsOnMissingFile(t *testing.T) {
	t.Parallel()

	doc := &Document{ContentPath: filepath.Join(t.TempDir(), "absent.json")}
	out := NewContentLoad().Handle(doc)

	require.False(t, out.Success)
	require.Equal(t, "ContentLoad", out.Stage)
	require.Equal(t, "read content error", out.Reason)
}

func TestContentLoadFailsOnMalformedJSON(t *testing.T) {
	t.Parallel()

	path := writeContentFile(t, "broken.json", `{"title": "unterminated`)
	doc := &Document{ContentPath: path}

	out := NewContentLoad().Handle(doc)

	require.False(t, out.Success)
	require.Equal(t, "read content error", out.Reason)
}

func TestContentLoadResetsWorkingContext(t *testing.T) {
	t.Parallel()

	path := writeContentFile(t, "page.html", "<html></html>")
	doc := &Document{ContentPath: path}
	doc.Work.Title = "stale"

	out := NewContentLoad().Handle(doc)

	require.True(t, out.Success)
	require.Empty(t, doc.Work.Title)
}
