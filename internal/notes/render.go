package notes

import (
	"bytes"
	"html/template"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

const noteTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
</head>
<body>
<article>
    <h1>{{.Title}}</h1>
    <div class="note-content">{{.Body}}</div>
    <p class="note-meta">Updated {{.UpdatedAt.Format "2006-01-02 15:04:05 MST"}}</p>
</article>
</body>
</html>
`

var notePage = template.Must(template.New("note").Parse(noteTemplate))

// RenderHTML converts markdown content to sanitized HTML.
func RenderHTML(content string) template.HTML {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(content))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	rendered := markdown.Render(doc, renderer)

	policy := bluemonday.UGCPolicy()
	policy.AllowElements("pre", "code")
	policy.AllowAttrs("class").OnElements("code", "pre")
	return template.HTML(policy.SanitizeBytes(rendered))
}

// RenderPage renders a note as a standalone HTML document.
func RenderPage(n *Note) ([]byte, error) {
	var buf bytes.Buffer
	err := notePage.Execute(&buf, struct {
		Title     string
		Body      template.HTML
		UpdatedAt time.Time
	}{
		Title:     n.Title,
		Body:      RenderHTML(n.Content),
		UpdatedAt: n.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
