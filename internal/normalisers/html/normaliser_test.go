package html

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title> Work Permits </title>
  <style>body { color: red }</style>
  <script>console.log("tracking")</script>
</head>
<body>
  <nav class="breadcrumb"><a href="/">Home</a><a href="/visas">Visas</a></nav>
  <header>Site header</header>
  <h1>Work Permits</h1>
  <p>Applicants must be between 18 and 45 years old.</p>
  <a href="/visas/skilled">Skilled stream</a>
  <a href="/visas/skilled/">Skilled stream duplicate</a>
  <a href="https://other.example.org/external">External</a>
  <a href="/forms/checklist.pdf">Checklist</a>
  <a href="mailto:info@example.com">Mail us</a>
  <footer>Footer text</footer>
</body>
</html>`

func TestParseExtractsTitleAndText(t *testing.T) {
	page, err := Parse("https://example.com/visas/work", samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Work Permits", page.Title)
	assert.Contains(t, page.Text, "between 18 and 45 years old")
	assert.NotContains(t, page.Text, "tracking")
	assert.NotContains(t, page.Text, "color: red")
	assert.NotContains(t, page.Text, "Footer text")
}

func TestParseKeepsSameOriginLinksOnly(t *testing.T) {
	page, err := Parse("https://example.com/visas/work", samplePage)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com",
		"https://example.com/visas",
		"https://example.com/visas/skilled",
	}, page.Links)
}

func TestParseCollectsAttachments(t *testing.T) {
	page, err := Parse("https://example.com/visas/work", samplePage)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/forms/checklist.pdf"}, page.Attachments)
}

func TestParseBreadcrumbs(t *testing.T) {
	page, err := Parse("https://example.com/visas/work", samplePage)
	require.NoError(t, err)

	assert.Equal(t, []string{"Home", "Visas"}, page.Breadcrumbs)
}

func TestParseTitleFallsBackToPath(t *testing.T) {
	page, err := Parse("https://example.com/guides/student-visas.html", "<html><body><p>hello</p></body></html>")
	require.NoError(t, err)

	assert.Equal(t, "student visas", page.Title)
}

func TestParseCapsLinks(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 80; i++ {
		b.WriteString(`<a href="/page-`)
		b.WriteString(strings.Repeat("x", i%5+1))
		b.WriteString(itoa(i))
		b.WriteString(`">link</a>`)
	}
	b.WriteString("</body></html>")

	page, err := Parse("https://example.com", b.String())
	require.NoError(t, err)
	assert.Len(t, page.Links, maxLinksPerPage)
}

func itoa(i int) string {
	return string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
}
