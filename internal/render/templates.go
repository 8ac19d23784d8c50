package render

import "strings"

// Template is an export house style.
type Template struct {
	Name       string
	Label      string
	FontFamily string
	Accent     string

	// Values used by the built-in PDF writer.
	pdfRegular string
	pdfBold    string
	pdfAccent  [3]float64

	// Values used by the DOCX writer.
	docxFont   string
	docxAccent string
}

const DefaultTemplateName = "eu"

var exportTemplates = []Template{
	{
		Name:       "eu",
		Label:      "European (Europass style)",
		FontFamily: "Arial, Helvetica, sans-serif",
		Accent:     "#003399",
		pdfRegular: "Helvetica",
		pdfBold:    "Helvetica-Bold",
		pdfAccent:  [3]float64{0, 0.2, 0.6},
		docxFont:   "Arial",
		docxAccent: "003399",
	},
	{
		Name:       "worldbank",
		Label:      "World Bank",
		FontFamily: "Times New Roman, Times, serif",
		Accent:     "#002244",
		pdfRegular: "Times-Roman",
		pdfBold:    "Times-Bold",
		pdfAccent:  [3]float64{0, 0.133, 0.267},
		docxFont:   "Times New Roman",
		docxAccent: "002244",
	},
}

// Templates lists the available export templates, default first.
func Templates() []Template {
	out := make([]Template, len(exportTemplates))
	copy(out, exportTemplates)
	return out
}

// FindTemplate looks up a template by case-insensitive name.
func FindTemplate(name string) (Template, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range exportTemplates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// LookupTemplate is FindTemplate with a fallback to the default template.
func LookupTemplate(name string) Template {
	if t, ok := FindTemplate(name); ok {
		return t
	}
	return exportTemplates[0]
}

// TemplateNames returns the names of all templates.
func TemplateNames() []string {
	names := make([]string, len(exportTemplates))
	for i, t := range exportTemplates {
		names[i] = t.Name
	}
	return names
}
