package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://signalshell.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Route table (E100-E119)
	"E101": {
		Category: CategoryRoute,
		Message:  "Duplicate route name",
		Detail:   "Every route must have a unique name; retained views are keyed by it.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryRoute,
		Message:  "Duplicate route path",
		Detail:   "Two routes resolve to the same path pattern. Only the first could ever match.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryRoute,
		Message:  "Invalid route path",
		Detail:   "Route paths must start with / and may not contain backslashes, NUL bytes or a query string.",
		DocURL:   docBase + "E103",
	},
	"E104": {
		Category: CategoryRoute,
		Message:  "Route has no view",
		Detail:   "A route must declare exactly one of Component or Lazy.",
		DocURL:   docBase + "E104",
	},
	"E105": {
		Category: CategoryRoute,
		Message:  "Unknown route generation",
		Detail:   "Route generations 1 and 2 are available.",
		DocURL:   docBase + "E105",
	},

	// Configuration and dev proxy (E120-E139)
	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryProxy,
		Message:  "Invalid proxy rule",
		Detail:   "Proxy rules need a path prefix starting with /, an http(s) target and valid rewrite patterns.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Ports must be between 1 and 65535.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid mode",
		Detail:   "Mode must be development, production or preview.",
		DocURL:   docBase + "E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
		DocURL:   docBase + "E124",
	},
	"E125": {
		Category: CategoryConfig,
		Message:  "Env file could not be loaded",
		Detail:   "A .env file exists but could not be parsed.",
		DocURL:   docBase + "E125",
	},
	"E130": {
		Category: CategoryProxy,
		Message:  "Port already in use",
		Detail:   "Another process is listening on the dev server port.",
		DocURL:   docBase + "E130",
	},

	// Build and publish (E140-E159)
	"E140": {
		Category: CategoryBuild,
		Message:  "Entry document not found",
		Detail:   "The static directory has no entry document to build from.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Project not found",
		Detail:   "No signalshell.json, signalshell.yaml or signalshell.yml was found in this directory or any parent.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryBuild,
		Message:  "Build failed",
		Detail:   "The asset bundle could not be written.",
		DocURL:   docBase + "E142",
	},
	"E143": {
		Category: CategoryBuild,
		Message:  "Build output missing",
		Detail:   "Run signalshell build before preview or publish.",
		DocURL:   docBase + "E143",
	},
	"E144": {
		Category: CategoryCLI,
		Message:  "Unknown project template",
		Detail:   "signalshell init was asked for a template that does not exist.",
		DocURL:   docBase + "E144",
	},
	"E145": {
		Category: CategoryCLI,
		Message:  "Project already exists",
		Detail:   "The target directory already contains a file the template would write.",
		DocURL:   docBase + "E145",
	},
	"E150": {
		Category: CategoryBuild,
		Message:  "View failed to load",
		Detail:   "A lazily loaded view returned an error.",
		DocURL:   docBase + "E150",
	},
	"E151": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "Uploading the build output to object storage failed.",
		DocURL:   docBase + "E151",
	},
	"E152": {
		Category: CategoryPublish,
		Message:  "Publish target not configured",
		Detail:   "Set publish.bucket in the configuration or pass --bucket.",
		DocURL:   docBase + "E152",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
