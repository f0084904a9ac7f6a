package notify

import (
	"bytes"
	"html/template"
)

var (
	permitStatusTmpl = template.Must(template.New("permit_status").Parse(`<h3>Permit Status Change</h3>
<p><strong>Project:</strong> {{.Project}}</p>
<p><strong>Permit:</strong> {{.Permit}}</p>
<p><strong>Status Changed:</strong> {{.Old}} &rarr; {{.New}}</p>
<p><a href="{{.Link}}">View Details</a></p>
`))

	inspectionTmpl = template.Must(template.New("inspection").Parse(`<h3>{{.Heading}}</h3>
<p><strong>Type:</strong> {{.Type}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Location:</strong> {{.Location}}</p>
<p><strong>Inspector:</strong> {{.Inspector}}</p>
<p><a href="{{.Link}}">View Details</a></p>
`))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
