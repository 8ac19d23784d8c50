package render

import (
	"bytes"
	"html/template"
)

// htmlNode groups consecutive list items so they share one <ul>.
type htmlNode struct {
	Kind  BlockKind
	Text  string
	Items []string
}

var htmlTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: A4; margin: 20mm; }
body { font-family: {{.Style.FontFamily}}; font-size: 11pt; color: #222; }
h1 { font-size: 20pt; color: {{.Style.Accent}}; margin: 0 0 8pt; }
h2 { font-size: 13pt; color: {{.Style.Accent}}; border-bottom: 1px solid {{.Style.Accent}}; margin: 14pt 0 6pt; }
p { margin: 0 0 4pt; }
ul { margin: 0 0 6pt 16pt; padding: 0; }
</style>
</head>
<body>
{{range .Nodes}}{{if eq .Kind 1}}<h1>{{.Text}}</h1>
{{else if eq .Kind 2}}<h2>{{.Text}}</h2>
{{else if eq .Kind 3}}<ul>
{{range .Items}}<li>{{.}}</li>
{{end}}</ul>
{{else if eq .Kind 4}}<br>
{{else}}<p>{{.Text}}</p>
{{end}}{{end}}</body>
</html>
`))

// ToHTML renders text as a standalone HTML page in the given template's
// style. Unknown template names fall back to the default.
func ToHTML(text, templateName string) (string, error) {
	tpl := LookupTemplate(templateName)
	blocks := ToBlocks(text)

	data := struct {
		Title string
		Style Template
		Nodes []htmlNode
	}{
		Title: documentTitle(blocks),
		Style: tpl,
		Nodes: groupBlocks(blocks),
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func groupBlocks(blocks []Block) []htmlNode {
	nodes := make([]htmlNode, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == ListItem {
			if n := len(nodes); n > 0 && nodes[n-1].Kind == ListItem {
				nodes[n-1].Items = append(nodes[n-1].Items, b.Text)
				continue
			}
			nodes = append(nodes, htmlNode{Kind: ListItem, Items: []string{b.Text}})
			continue
		}
		nodes = append(nodes, htmlNode{Kind: b.Kind, Text: b.Text})
	}
	return nodes
}

func documentTitle(blocks []Block) string {
	for _, b := range blocks {
		if b.Kind == Heading1 {
			return b.Text
		}
	}
	return "CV"
}
