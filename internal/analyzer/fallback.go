package analyzer

import (
	"bytes"
	"html/template"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/local/vitanote/internal/domain"
	"github.com/local/vitanote/internal/fields"
)

type profile struct {
	Title        string
	Observations []string
	ShowSurgical bool
}

var profiles = map[domain.DocumentType]profile{
	domain.DocSurgery: {
		Title: "Surgical Report Analysis",
		Observations: []string{
			"Operative details were found in the document",
			"Review the procedure and diagnosis with your surgeon",
			"Follow the post-operative care instructions you were given",
		},
		ShowSurgical: true,
	},
	domain.DocLab: {
		Title: "Laboratory Report Analysis",
		Observations: []string{
			"Test results were found in the document",
			"Compare values against the reference ranges on the report",
			"Discuss any flagged results with your healthcare provider",
		},
	},
	domain.DocImaging: {
		Title: "Imaging Report Analysis",
		Observations: []string{
			"Imaging findings were found in the document",
			"The radiologist's impression summarizes the key findings",
			"Your doctor will correlate the findings with your symptoms",
		},
	},
	domain.DocGeneral: {
		Title: "Medical Report Analysis",
		Observations: []string{
			"Document successfully processed",
			"Text extraction completed",
			"Ready for manual review",
		},
	},
}

var medicalTmpl = template.Must(template.New("medical").Parse(`
<h3>{{.Title}}</h3>
<p><strong>Note:</strong> This is a basic analysis. For full AI-powered analysis, please configure the GROQ_API_KEY environment variable.</p>

<h4>Extracted Text Summary:</h4>
<p>The uploaded document contains {{.WordCount}} words of {{.Focus}}.</p>
{{if .Patient}}
<h4>Patient Information:</h4>
<ul>{{range .Patient}}
    <li><strong>{{.Label}}:</strong> {{.Value}}</li>{{end}}
</ul>
{{end}}{{if .Surgical}}
<h4>Surgical Information:</h4>
<ul>{{range .Surgical}}
    <li><strong>{{.Label}}:</strong> {{.Value}}</li>{{end}}
</ul>
{{end}}
<h4>Key Observations:</h4>
<ul>{{range .Observations}}
    <li>{{.}}</li>{{end}}
</ul>

<div class="important-note">
    <strong>Important:</strong> This analysis is basic and for informational purposes only.
    Always consult with your healthcare provider for medical advice.
</div>
`))

var processingTmpl = template.Must(template.New("processing").Parse(`
<h3>Document Processing Report</h3>
<p><strong>Note:</strong> The text of this document could not be read, so a medical analysis was not possible.</p>

<h4>Document Details:</h4>
<ul>{{if .Name}}
    <li><strong>File:</strong> {{.Name}}</li>
    <li><strong>Size:</strong> {{.Size}} bytes</li>{{end}}
    <li><strong>Type:</strong> {{.DocTitle}}</li>
</ul>

<h4>Next Steps:</h4>
<ul>
    <li>Upload a clearer scan or a text-based PDF for full text extraction</li>
    <li>Review the original document with your healthcare provider</li>
    <li>Keep this document for your medical records</li>
</ul>

<div class="important-note">
    <strong>Important:</strong> This report describes the uploaded file only.
    Always consult with your healthcare provider for medical advice.
</div>
`))

var sizePrinter = message.NewPrinter(language.English)

type medicalData struct {
	Title        string
	Observations []string
	Focus        string
	WordCount    int
	Patient      []domain.Field
	Surgical     []domain.Field
}

type processingData struct {
	Name     string
	Size     string
	DocTitle string
}

// Fallback renders the templated analysis for doc. It does not set a
// degradation reason; callers decide why the template was used.
func Fallback(doc domain.ExtractedDocument) domain.AnalysisResult {
	if doc.Source == domain.SourceMetadataFallback {
		docType := domain.Classify(doc.File.Name)
		if doc.File.Name == "" {
			docType = domain.Classify(doc.Text)
		}
		data := processingData{
			Name:     doc.File.Name,
			Size:     sizePrinter.Sprintf("%d", doc.File.Size),
			DocTitle: docType.Title(),
		}
		return domain.AnalysisResult{Text: execute(processingTmpl, data), DocType: docType}
	}

	docType := domain.Classify(doc.Text).Clinical()
	p := profiles[docType]
	recovered := fields.Recover(doc.Text)

	data := medicalData{
		Title:        p.Title,
		Observations: p.Observations,
		Focus:        docType.Focus(),
		WordCount:    len(strings.Fields(doc.Text)),
		Patient:      onlyRecovered(recovered.Patient.Fields()),
	}
	if p.ShowSurgical {
		data.Surgical = onlyRecovered(recovered.Surgical.Fields())
	}
	return domain.AnalysisResult{Text: execute(medicalTmpl, data), DocType: docType}
}

func onlyRecovered(fs []domain.Field) []domain.Field {
	var out []domain.Field
	for _, f := range fs {
		if f.Value != domain.NotSpecified {
			out = append(out, f)
		}
	}
	return out
}

func execute(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "<p>Document processed. Please consult your healthcare provider.</p>"
	}
	return buf.String()
}
