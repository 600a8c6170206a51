package templates

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Description is a short project description.
	Description string

	// APITarget is the backend the /api prefix forwards to.
	// Default: config.DefaultAPITarget.
	APITarget string

	// Bucket is the publish bucket. Empty leaves publishing unconfigured.
	Bucket string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"full":    fullTemplate(),
}

var funcs = template.FuncMap{
	"quote": func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	},
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E144").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, full")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create generates a project in dir and returns the written paths,
// relative to dir and sorted. Nothing is written if any of the files
// already exists.
func (t *Template) Create(dir string, cfg Config) ([]string, error) {
	if cfg.APITarget == "" {
		cfg.APITarget = config.DefaultAPITarget
	}

	paths := make([]string, 0, len(t.Files))
	for relPath := range t.Files {
		paths = append(paths, relPath)
	}
	sort.Strings(paths)

	for _, relPath := range paths {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(relPath))); err == nil {
			return nil, errors.New("E145").
				WithDetail(relPath + " already exists in " + dir).
				WithSuggestion("Choose an empty directory")
		}
	}

	rendered := make(map[string][]byte, len(paths))
	for _, relPath := range paths {
		tmpl, err := template.New(relPath).Funcs(funcs).Parse(t.Files[relPath])
		if err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}
		rendered[relPath] = buf.Bytes()
	}

	for _, relPath := range paths {
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(fullPath, rendered[relPath], 0o644); err != nil {
			return nil, err
		}
	}

	return paths, nil
}

// entryDocument returns the entry document, with a stylesheet link when
// styles is set.
func entryDocument(styles bool) string {
	link := ""
	if styles {
		link = "\n  <link rel=\"stylesheet\" href=\"/css/app.css\">"
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ProjectName}}</title>
  <link rel="icon" href="%BASE_URL%favicon.svg">` + link + `
  <script type="module" src="/main.js"></script>
</head>
<body>
  <div id="app"></div>
</body>
</html>
`
}

const mainScript = `const flags = window.__SIGNALSHELL_FLAGS__ || {};

if (flags.hydrationMismatchDetails) {
  console.info({{quote .ProjectName}} + ": hydration mismatch details enabled");
}
`

const favicon = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M0 8h3l2-6 3 12 2-6h6" fill="none" stroke="#2563eb" stroke-width="1.5"/></svg>
`

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "signalshell.json with the default proxy and an empty entry document",
		Files: map[string]string{
			"signalshell.json": `{
  "name": {{quote .ProjectName}},
  "dev": {
    "proxy": [
      {
        "prefix": "/api",
        "target": {{quote .APITarget}},
        "changeOrigin": true,
        "pathRewrite": {"^/api": ""}
      }
    ]
  }{{if .Bucket}},
  "publish": {
    "bucket": {{quote .Bucket}}
  }{{end}}
}
`,
			"public/index.html":  entryDocument(false),
			"public/main.js":     mainScript,
			"public/favicon.svg": favicon,
		},
	}
}

// fullTemplate returns the full template.
func fullTemplate() *Template {
	return &Template{
		Name:        "full",
		Description: "YAML configuration with env files, prerendering, a stylesheet and publish settings",
		Files: map[string]string{
			"signalshell.yaml": `# {{.ProjectName}}{{if .Description}}: {{.Description}}{{end}}
name: {{quote .ProjectName}}

static:
  dir: public
  index: index.html

dev:
  port: 8080
  headers:
    X-Content-Type-Options: nosniff
  proxy:
    - prefix: /api
      target: ${API_TARGET}
      changeOrigin: true
      pathRewrite:
        "^/api": ""
  historyFallback: true
  hotReload: true
  prerender: true

build:
  output: dist
  assetsDir: assets
  publicPath:
    production: /
    development: ./

routes:
  generation: 2
  notFound: view

runtime:
  hydrationMismatchDetails: ${HYDRATION_MISMATCH_DETAILS}

publish:
  bucket: {{if .Bucket}}{{quote .Bucket}}{{else}}""{{end}}
  cacheControl: public, max-age=31536000, immutable
`,
			".env":               "API_TARGET={{.APITarget}}\nHYDRATION_MISMATCH_DETAILS=false\n",
			".env.development":   "HYDRATION_MISMATCH_DETAILS=true\n",
			".gitignore":         "dist/\n.env.local\n.env.*.local\n",
			"public/index.html":  entryDocument(true),
			"public/main.js":     mainScript,
			"public/favicon.svg": favicon,
			"public/css/app.css": "body {\n  margin: 0;\n  font-family: system-ui, sans-serif;\n}\n",
		},
	}
}
