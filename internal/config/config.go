package config

import (
	"encoding/json"
	stderrors "errors"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/signalshell/internal/errors"
)

// ConfigFileNames are the accepted configuration files, in lookup order.
var ConfigFileNames = []string{"signalshell.json", "signalshell.yaml", "signalshell.yml"}

const (
	// DefaultPort is the dev server port.
	DefaultPort = 8080

	// DefaultHost is the dev server host.
	DefaultHost = "localhost"

	// DefaultOutput is the build output directory.
	DefaultOutput = "dist"

	// DefaultAssetsDir is the asset subdirectory of the build output.
	DefaultAssetsDir = "assets"

	// DefaultAPITarget is the local backend the /api prefix forwards to.
	DefaultAPITarget = "http://127.0.0.1:5000"
)

// Not-found policies accepted in routes.notFound.
const (
	NotFoundView     = "view"
	NotFoundRedirect = "redirect"
	NotFoundBlank    = "blank"
)

// Config is the project configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Static  StaticConfig  `json:"static" yaml:"static"`
	Dev     DevConfig     `json:"dev" yaml:"dev"`
	Build   BuildConfig   `json:"build" yaml:"build"`
	Routes  RoutesConfig  `json:"routes" yaml:"routes"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Publish PublishConfig `json:"publish" yaml:"publish"`

	// Mode is resolved at load time; it is never read from the file.
	Mode Mode `json:"-" yaml:"-"`

	configPath string
	root       string
}

// StaticConfig locates the application's static sources.
type StaticConfig struct {
	// Dir holds the entry document and assets. Default: "public".
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Index is the entry document inside Dir. Default: "index.html".
	Index string `json:"index,omitempty" yaml:"index,omitempty"`
}

// DevConfig configures the development server.
type DevConfig struct {
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	OpenBrowser bool `json:"openBrowser,omitempty" yaml:"openBrowser,omitempty"`

	// Headers are added to every response. User entries merge over the
	// defaults; an empty value drops a default header.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Proxy forwards matching request prefixes to other origins.
	Proxy []ProxyRule `json:"proxy,omitempty" yaml:"proxy,omitempty"`

	// HistoryFallback serves the entry document for unmatched HTML
	// requests so client-side routes survive a reload.
	HistoryFallback bool `json:"historyFallback" yaml:"historyFallback"`

	// HotReload injects the reload client and broadcasts file changes.
	HotReload bool `json:"hotReload" yaml:"hotReload"`

	// Prerender renders the route's view into the entry document on
	// fallback requests.
	Prerender bool `json:"prerender,omitempty" yaml:"prerender,omitempty"`

	// Watch lists directories polled for changes. Default: the static dir.
	Watch []string `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Ignore lists glob patterns skipped by the watcher.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// ProxyRule forwards requests under Prefix to Target.
type ProxyRule struct {
	Prefix string `json:"prefix" yaml:"prefix"`

	Target string `json:"target" yaml:"target"`

	// ChangeOrigin rewrites the Host and Origin headers to the target's.
	ChangeOrigin bool `json:"changeOrigin,omitempty" yaml:"changeOrigin,omitempty"`

	// PathRewrite maps regular expressions to replacements applied to
	// the request path, e.g. {"^/api": ""}.
	PathRewrite map[string]string `json:"pathRewrite,omitempty" yaml:"pathRewrite,omitempty"`
}

// BuildConfig configures the asset bundle.
type BuildConfig struct {
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	AssetsDir string `json:"assetsDir,omitempty" yaml:"assetsDir,omitempty"`

	PublicPath PublicPathConfig `json:"publicPath" yaml:"publicPath"`
}

// PublicPathConfig is the URL prefix assets are referenced by, per mode.
type PublicPathConfig struct {
	// Production applies to production builds. Default: "/".
	Production string `json:"production,omitempty" yaml:"production,omitempty"`

	// Development applies to development and preview. Default: "./".
	Development string `json:"development,omitempty" yaml:"development,omitempty"`
}

// RoutesConfig selects the route table and navigation behavior.
type RoutesConfig struct {
	// Generation selects the route table revision. Default: 2.
	Generation int `json:"generation,omitempty" yaml:"generation,omitempty"`

	// KeepAliveCapacity bounds retained views. 0 selects the default,
	// negative disables eviction.
	KeepAliveCapacity int `json:"keepAliveCapacity,omitempty" yaml:"keepAliveCapacity,omitempty"`

	// NotFound is "view", "redirect" or "blank". Default: "view".
	NotFound string `json:"notFound,omitempty" yaml:"notFound,omitempty"`

	// NotFoundRedirect is the redirect target. Default: "/".
	NotFoundRedirect string `json:"notFoundRedirect,omitempty" yaml:"notFoundRedirect,omitempty"`
}

// RuntimeConfig holds the view runtime flags.
type RuntimeConfig struct {
	HydrationMismatchDetails bool `json:"hydrationMismatchDetails,omitempty" yaml:"hydrationMismatchDetails,omitempty"`
}

// PublishConfig configures uploading the build output to S3.
type PublishConfig struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for compatible stores.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// CacheControl is set on hashed assets. Default: one year, immutable.
	CacheControl string `json:"cacheControl,omitempty" yaml:"cacheControl,omitempty"`
}

// DefaultProxy is the dev proxy used when none is configured.
func DefaultProxy() []ProxyRule {
	return []ProxyRule{{
		Prefix:       "/api",
		Target:       DefaultAPITarget,
		ChangeOrigin: true,
		PathRewrite:  map[string]string{"^/api": ""},
	}}
}

// New returns a configuration with default values.
func New() *Config {
	return &Config{
		Static: StaticConfig{
			Dir:   "public",
			Index: "index.html",
		},
		Dev: DevConfig{
			Port:            DefaultPort,
			Host:            DefaultHost,
			Headers:         map[string]string{"X-Content-Type-Options": "nosniff"},
			Proxy:           DefaultProxy(),
			HistoryFallback: true,
			HotReload:       true,
		},
		Build: BuildConfig{
			Output:    DefaultOutput,
			AssetsDir: DefaultAssetsDir,
			PublicPath: PublicPathConfig{
				Production:  "/",
				Development: "./",
			},
		},
		Routes: RoutesConfig{
			Generation:       2,
			NotFound:         NotFoundView,
			NotFoundRedirect: "/",
		},
		Publish: PublishConfig{
			CacheControl: "public, max-age=31536000, immutable",
		},
		Mode: Development,
	}
}

// Load reads the configuration file in dir.
func Load(dir string) (*Config, error) {
	path, ok := findConfigFile(dir)
	if !ok {
		return nil, errors.New("E141").
			WithDetail("No configuration file found in " + dir).
			WithSuggestion("Create signalshell.yaml or run commands without a config to use defaults")
	}
	return LoadFile(path)
}

// LoadFile reads a configuration file. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, cfg)
	default:
		err = json.Unmarshal(expanded, cfg)
	}
	if err != nil {
		return nil, parseError(path, expanded, err)
	}

	cfg.configPath = path
	cfg.root = filepath.Dir(path)
	cfg.applyDefaults()
	return cfg, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func parseError(path string, data []byte, err error) error {
	se := errors.New("E120").
		WithDetail("Failed to parse " + filepath.Base(path)).
		Wrap(err)

	line := 0
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntax):
		line = lineAt(data, syntax.Offset)
	case stderrors.As(err, &typeErr):
		line = lineAt(data, typeErr.Offset)
	default:
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
	}
	se.WithLocation(path, line, 0)
	return se
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return strings.Count(string(data[:offset]), "\n") + 1
}

func findConfigFile(dir string) (string, bool) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists reports whether dir contains a configuration file.
func Exists(dir string) bool {
	_, ok := findConfigFile(dir)
	return ok
}

// FindProjectRoot walks up from startDir to the nearest directory holding
// a configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No configuration file found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadProject resolves the mode, loads the mode's env files and then the
// configuration of the project containing startDir. Without a
// configuration file the defaults apply, rooted at startDir.
func LoadProject(startDir, modeFlag string, fallback Mode) (*Config, error) {
	mode, err := ResolveMode(modeFlag, fallback)
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(startDir)
	if err != nil {
		if root, err = filepath.Abs(startDir); err != nil {
			return nil, err
		}
	}

	if _, err := LoadEnv(root, mode); err != nil {
		return nil, err
	}

	var cfg *Config
	if Exists(root) {
		if cfg, err = Load(root); err != nil {
			return nil, err
		}
	} else {
		cfg = New()
		cfg.root = root
		cfg.applyDefaults()
	}

	cfg.Mode = mode
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromWorkingDir is LoadProject for the current directory.
func LoadFromWorkingDir(modeFlag string, fallback Mode) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadProject(wd, modeFlag, fallback)
}

// applyDefaults fills in fields a configuration file left empty.
func (c *Config) applyDefaults() {
	if c.Static.Dir == "" {
		c.Static.Dir = "public"
	}
	if c.Static.Index == "" {
		c.Static.Index = "index.html"
	}
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	for k, v := range c.Dev.Headers {
		if v == "" {
			delete(c.Dev.Headers, k)
		}
	}
	if len(c.Dev.Watch) == 0 {
		c.Dev.Watch = []string{c.Static.Dir}
	}
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.AssetsDir == "" {
		c.Build.AssetsDir = DefaultAssetsDir
	}
	if c.Build.PublicPath.Production == "" {
		c.Build.PublicPath.Production = "/"
	}
	if c.Build.PublicPath.Development == "" {
		c.Build.PublicPath.Development = "./"
	}
	if c.Routes.Generation == 0 {
		c.Routes.Generation = 2
	}
	if c.Routes.NotFound == "" {
		c.Routes.NotFound = NotFoundView
	}
	if c.Routes.NotFoundRedirect == "" {
		c.Routes.NotFoundRedirect = "/"
	}
	if c.Mode == "" {
		c.Mode = Development
	}
}

// Validate checks the configuration for values the CLI cannot use.
func (c *Config) Validate() error {
	if c.Dev.Port < 1 || c.Dev.Port > 65535 {
		return errors.New("E122").
			WithDetailf("dev.port is %d", c.Dev.Port).
			WithLocation(c.configPath, 0, 0)
	}
	if !c.Mode.Valid() {
		return errors.New("E123").WithDetailf("unknown mode %q", c.Mode)
	}

	seen := make(map[string]bool, len(c.Dev.Proxy))
	for _, rule := range c.Dev.Proxy {
		if err := rule.Validate(); err != nil {
			return errors.New("E121").
				WithDetailf("proxy rule %q", rule.Prefix).
				WithLocation(c.configPath, 0, 0).
				Wrap(err)
		}
		if seen[rule.Prefix] {
			return errors.New("E121").WithDetailf("proxy prefix %q declared twice", rule.Prefix)
		}
		seen[rule.Prefix] = true
	}

	if c.Routes.Generation != 1 && c.Routes.Generation != 2 {
		return errors.New("E105").WithDetailf("routes.generation is %d", c.Routes.Generation)
	}
	switch c.Routes.NotFound {
	case NotFoundView, NotFoundBlank:
	case NotFoundRedirect:
		if !strings.HasPrefix(c.Routes.NotFoundRedirect, "/") {
			return errors.New("E124").
				WithDetailf("routes.notFoundRedirect %q must start with /", c.Routes.NotFoundRedirect)
		}
	default:
		return errors.New("E124").
			WithDetailf("routes.notFound %q", c.Routes.NotFound).
			WithSuggestion(`Use "view", "redirect" or "blank"`)
	}

	if filepath.IsAbs(c.Build.AssetsDir) || strings.Contains(c.Build.AssetsDir, "..") {
		return errors.New("E124").
			WithDetailf("build.assetsDir %q must be a relative path inside the output directory", c.Build.AssetsDir)
	}
	return nil
}

// Validate checks a single proxy rule.
func (r ProxyRule) Validate() error {
	if !strings.HasPrefix(r.Prefix, "/") {
		return stderrors.New("prefix must start with /")
	}
	u, err := url.Parse(r.Target)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return stderrors.New("target must be an absolute http(s) URL")
	}
	for pattern := range r.PathRewrite {
		if _, err := regexp.Compile(pattern); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the configuration file path, empty when running on
// defaults.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root.
func (c *Config) Dir() string {
	return c.root
}

// DevAddress returns host:port of the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the dev server URL.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// BasePath returns the asset URL prefix for the configured mode.
func (c *Config) BasePath() string {
	return c.BasePathFor(c.Mode)
}

// BasePathFor returns the asset URL prefix for mode: the production
// public path for production builds and the development one otherwise.
func (c *Config) BasePathFor(mode Mode) string {
	if mode == Production {
		return c.Build.PublicPath.Production
	}
	return c.Build.PublicPath.Development
}

func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.root, path)
}

// StaticPath returns the absolute static source directory.
func (c *Config) StaticPath() string {
	return c.abs(c.Static.Dir)
}

// IndexPath returns the absolute path of the entry document.
func (c *Config) IndexPath() string {
	return filepath.Join(c.StaticPath(), c.Static.Index)
}

// OutputPath returns the absolute build output directory.
func (c *Config) OutputPath() string {
	return c.abs(c.Build.Output)
}

// AssetsPath returns the absolute asset directory inside the output.
func (c *Config) AssetsPath() string {
	return filepath.Join(c.OutputPath(), c.Build.AssetsDir)
}

// WatchPaths returns the absolute directories the dev watcher polls.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		paths = append(paths, c.abs(p))
	}
	return paths
}
