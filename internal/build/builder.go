package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
	"github.com/vango-dev/signalshell/pkg/assets"
)

const (
	// ManifestFile is the manifest's name in the output directory.
	ManifestFile = "manifest.json"

	// BaseURLPlaceholder is replaced with the base path in the entry
	// document.
	BaseURLPlaceholder = "%BASE_URL%"

	hashLength = 8
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Output is the output directory.
	Output string

	// Index is the path of the written entry document.
	Index string

	// BasePath is the prefix asset references were rewritten to.
	BasePath string

	// Manifest maps source paths to fingerprinted paths.
	Manifest *assets.Manifest

	// Assets is the number of fingerprinted files.
	Assets int

	// Bytes is the total size of the fingerprinted files.
	Bytes int64

	// Rewritten counts the entry document references that were rewritten.
	Rewritten int
}

// Options configures the builder.
type Options struct {
	// Mode selects the base path. Default: the configuration's mode.
	Mode config.Mode

	// Output overrides the configured output directory.
	Output string

	// Clean removes the output directory before building.
	Clean bool

	// Concurrency bounds parallel asset copies. Default: 8.
	Concurrency int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder handles static builds.
type Builder struct {
	config  *config.Config
	options Options
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	if options.Mode == "" {
		options.Mode = cfg.Mode
	}
	if options.Output == "" {
		options.Output = cfg.OutputPath()
	} else if !filepath.IsAbs(options.Output) && cfg.Dir() != "" {
		options.Output = filepath.Join(cfg.Dir(), options.Output)
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 8
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Builder{
		config:  cfg,
		options: options,
	}
}

// OutputDir returns the directory the builder writes to.
func (b *Builder) OutputDir() string {
	return b.options.Output
}

// Build performs a build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	srcDir := b.config.StaticPath()
	indexPath := b.config.IndexPath()
	outputDir := b.options.Output

	if _, err := os.Stat(indexPath); err != nil {
		return nil, errors.New("E140").
			WithDetail(indexPath).
			WithSuggestion("Create the entry document or set static.dir and static.index").
			Wrap(err)
	}

	if b.options.Clean {
		b.progress("Cleaning output directory...")
		if err := os.RemoveAll(outputDir); err != nil {
			return nil, errors.New("E142").Wrap(err)
		}
	}
	assetsDir := filepath.Join(outputDir, b.config.Build.AssetsDir)
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return nil, errors.New("E142").Wrap(err)
	}

	result := &Result{
		Output:   outputDir,
		BasePath: b.config.BasePathFor(b.options.Mode),
		Manifest: assets.NewManifest(),
	}

	b.progress("Fingerprinting assets...")
	if err := b.copyAssets(ctx, srcDir, assetsDir, result); err != nil {
		return nil, err
	}

	b.progress("Writing entry document...")
	resolver := assets.NewResolver(result.Manifest, result.BasePath)
	doc, n, err := rewriteDocument(indexPath, resolver)
	if err != nil {
		return nil, errors.New("E142").WithDetail("rewrite " + b.config.Static.Index).Wrap(err)
	}
	result.Rewritten = n
	result.Index = filepath.Join(outputDir, b.config.Static.Index)
	if err := os.WriteFile(result.Index, doc, 0o644); err != nil {
		return nil, errors.New("E142").Wrap(err)
	}

	b.progress("Writing manifest...")
	if err := result.Manifest.Save(filepath.Join(outputDir, ManifestFile)); err != nil {
		return nil, errors.New("E142").Wrap(err)
	}

	result.Duration = time.Since(start)
	b.options.Logger.Debug("build complete",
		"mode", b.options.Mode,
		"output", outputDir,
		"assets", result.Assets,
		"bytes", result.Bytes,
		"rewritten", result.Rewritten,
		"duration", result.Duration)
	return result, nil
}

// copyAssets fingerprints every file of srcDir except the entry document
// into assetsDir, in parallel.
func (b *Builder) copyAssets(ctx context.Context, srcDir, assetsDir string, result *Result) error {
	var sources []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p == b.options.Output {
			return filepath.SkipDir
		}
		if p != srcDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || p == b.config.IndexPath() {
			return nil
		}
		sources = append(sources, p)
		return nil
	})
	if err != nil {
		return errors.New("E142").WithDetail("read " + srcDir).Wrap(err)
	}

	prefix := path.Clean(filepath.ToSlash(b.config.Build.AssetsDir))
	var total atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Concurrency)
	for _, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(srcDir, src)
			if err != nil {
				return err
			}
			name, size, err := copyHashed(src, filepath.Join(assetsDir, filepath.Dir(rel)))
			if err != nil {
				return errors.New("E142").WithDetail("copy " + rel).Wrap(err)
			}

			key := filepath.ToSlash(rel)
			result.Manifest.Set(key, path.Join(prefix, path.Dir(key), name))
			total.Add(size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	result.Assets = result.Manifest.Len()
	result.Bytes = total.Load()
	return nil
}

// copyHashed writes src into dir as <name>.<hash8><ext> and returns the
// new file name and its size.
func copyHashed(src, dir string) (string, int64, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	name := HashedName(filepath.Base(src), data)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", 0, err
	}
	return name, int64(len(data)), nil
}

// HashedName inserts the first eight hex digits of the content's SHA-256
// before the extension: main.js becomes main.3f2a9c1d.js.
func HashedName(name string, content []byte) string {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])[:hashLength]

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s.%s%s", base, hash, ext)
}

// referenceAttrs are the attributes that may point at a bundled asset.
var referenceAttrs = map[string]bool{
	"src":    true,
	"href":   true,
	"poster": true,
	"data":   true,
}

// rewriteDocument reads the entry document, substitutes the base path
// placeholder and rewrites local asset references through resolver. It
// returns the rendered document and the number of references rewritten.
func rewriteDocument(indexPath string, resolver *assets.Resolver) ([]byte, int, error) {
	src, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, 0, err
	}
	src = bytes.ReplaceAll(src, []byte(BaseURLPlaceholder), []byte(resolver.Base()))

	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, 0, err
	}

	rewritten := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for i, a := range n.Attr {
				if a.Namespace != "" || !referenceAttrs[a.Key] {
					continue
				}
				if ref, ok := resolver.Reference(a.Val); ok {
					n.Attr[i].Val = ref
					rewritten++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), rewritten, nil
}

// CheckOutput verifies that dir holds a finished build.
func CheckOutput(dir, index string) error {
	if _, err := os.Stat(filepath.Join(dir, index)); err != nil {
		return errors.New("E143").
			WithDetail(dir).
			WithSuggestion("Run signalshell build first").
			Wrap(err)
	}
	return nil
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.options.Output)
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}
