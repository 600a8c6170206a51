// Package templates provides project scaffolding templates.
//
// # Available Templates
//
//   - minimal: signalshell.json and a public directory with an entry document
//   - full: YAML configuration with proxy, headers and publish settings,
//     mode env files and a stylesheet
//
// # Usage
//
//	tmpl, err := templates.Get("full")
//	if err != nil {
//	    return err
//	}
//	files, err := tmpl.Create(projectDir, templates.Config{ProjectName: "signals"})
//
// # Template Variables
//
//	{{.ProjectName}}  - Name of the project
//	{{.Description}}  - Project description
//	{{.APITarget}}    - Backend the /api prefix forwards to
//	{{.Bucket}}       - Publish bucket, empty to leave publishing unconfigured
package templates
