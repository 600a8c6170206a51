// Package views holds the application's route views. Each view keeps only
// the form state its page needs between visits; rendering is plain
// html/template markup.
package views

import (
	"html/template"
	"io"

	"github.com/vango-dev/signalshell/pkg/view"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "home"}}<section class="home"><h1>Signal Workbench</h1>
<nav><a href="/upload">Upload</a> <a href="/generator">Generator</a> <a href="/analysis">Analysis</a>{{if .DimenReduct}} <a href="/dimenreduct">Dimension Reduction</a>{{end}}</nav>
</section>{{end}}

{{define "upload"}}<section class="upload"><h1>Upload</h1>
<p class="accept">Accepted: {{range $i, $e := .Accepted}}{{if $i}}, {{end}}.{{$e}}{{end}} (max {{.MaxMB}} MB)</p>
{{if .File}}<p class="file">{{.File}}</p>{{else}}<p class="file empty">No file selected</p>{{end}}
</section>{{end}}

{{define "generator"}}<section class="generator"><h1>Signal Generator</h1>
<dl>
<dt>Type</dt><dd>{{.Type}}</dd>
<dt>Frequency</dt><dd>{{.Frequency}}</dd>
<dt>Amplitude</dt><dd>{{.Amplitude}}</dd>
<dt>Phase</dt><dd>{{.Phase}}</dd>
<dt>Duration</dt><dd>{{.Duration}}</dd>
{{if eq .Type "square"}}<dt>Duty cycle</dt><dd>{{.DutyCycle}}</dd>{{end}}
<dt>Sample rate</dt><dd>{{.SampleRate}}</dd>
</dl>
</section>{{end}}

{{define "analysis"}}<section class="analysis"><h1>Analysis</h1>
<p class="cutoff">High-pass cutoff: {{.Cutoff}} Hz</p>
</section>{{end}}

{{define "dimenreduct"}}<section class="dimenreduct"><h1>Dimension Reduction</h1>
<p class="selection">{{.Dataset}} / {{.Algorithm}} / {{.Components}} components</p>
</section>{{end}}

{{define "notfound"}}<section class="not-found"><h1>Page not found</h1><a href="/">Back to home</a></section>{{end}}
`))

func render(w io.Writer, name string, data any) error {
	return pages.ExecuteTemplate(w, name, data)
}

// Home is the landing page.
type Home struct {
	// DimenReduct shows the dimension reduction link.
	DimenReduct bool
}

func (h *Home) Render(w io.Writer) error {
	return render(w, "home", h)
}

// NotFound is shown for unmatched paths.
type NotFound struct{}

func (NotFound) Render(w io.Writer) error {
	return render(w, "notfound", nil)
}

// Factories.
var (
	HomeFactory = view.FactoryFunc(func() view.View { return &Home{} })

	// HomeWithDimenReductFactory links the dimension reduction page.
	HomeWithDimenReductFactory = view.FactoryFunc(func() view.View { return &Home{DimenReduct: true} })

	UploadFactory      = view.FactoryFunc(func() view.View { return NewUpload() })
	GeneratorFactory   = view.FactoryFunc(func() view.View { return NewGenerator() })
	AnalysisFactory    = view.FactoryFunc(func() view.View { return NewAnalysis() })
	DimenReductFactory = view.FactoryFunc(func() view.View { return NewDimenReduct() })
	NotFoundFactory    = view.FactoryFunc(func() view.View { return NotFound{} })
)
