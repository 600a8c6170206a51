// Package publish uploads a finished build to S3 or an S3-compatible store.
//
// Fingerprinted assets are uploaded first, in parallel, with a long-lived
// Cache-Control. The manifest and the entry document follow, uncached, so
// a client never loads a document that references a missing asset.
package publish

import (
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
)

// DefaultRegion is used when neither the configuration nor AWS_REGION
// names one.
const DefaultRegion = "us-east-1"

// NoCache is the Cache-Control of documents that must be revalidated.
const NoCache = "no-cache"

// ObjectPutter is the subset of the S3 client used for publishing.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a Publisher.
type Options struct {
	// Bucket is required.
	Bucket string

	// Prefix is prepended to every key.
	Prefix string

	// AssetsDir is the fingerprinted asset directory inside the build
	// output. Default: "assets".
	AssetsDir string

	// CacheControl is set on fingerprinted assets.
	CacheControl string

	// Concurrency bounds parallel uploads. Default: 8.
	Concurrency int

	// DryRun lists the uploads without performing them.
	DryRun bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnUpload is called after each object is stored.
	OnUpload func(key string)
}

// Result summarizes a publish.
type Result struct {
	// Keys are the stored object keys in upload order.
	Keys []string

	// Bytes is the total size uploaded.
	Bytes int64
}

// Publisher uploads build output.
type Publisher struct {
	client  ObjectPutter
	options Options
}

// New creates a Publisher. A missing bucket fails with E152.
func New(client ObjectPutter, options Options) (*Publisher, error) {
	if options.Bucket == "" {
		return nil, errors.New("E152").
			WithSuggestion("Set publish.bucket in the configuration or pass --bucket")
	}
	if options.AssetsDir == "" {
		options.AssetsDir = config.DefaultAssetsDir
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 8
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Publisher{client: client, options: options}, nil
}

// NewClient creates an S3 client from the publish configuration.
// Credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN. An endpoint selects path-style addressing for
// S3-compatible stores.
func NewClient(cfg config.PublishConfig) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = DefaultRegion
	}

	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("E151").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

type object struct {
	path  string
	key   string
	size  int64
	asset bool
}

// Publish uploads every file of dir.
func (p *Publisher) Publish(ctx context.Context, dir string) (*Result, error) {
	objects, err := p.collect(dir)
	if err != nil {
		return nil, errors.New("E151").WithDetail("read " + dir).Wrap(err)
	}

	var assets, documents []object
	for _, o := range objects {
		if o.asset {
			assets = append(assets, o)
		} else {
			documents = append(documents, o)
		}
	}

	result := &Result{}
	var mu sync.Mutex
	var total atomic.Int64
	record := func(o object) {
		mu.Lock()
		defer mu.Unlock()
		result.Keys = append(result.Keys, o.key)
		total.Add(o.size)
		if p.options.OnUpload != nil {
			p.options.OnUpload(o.key)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.Concurrency)
	for _, o := range assets {
		g.Go(func() error {
			if err := p.put(gctx, o); err != nil {
				return err
			}
			record(o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range documents {
		if err := p.put(ctx, o); err != nil {
			return nil, err
		}
		record(o)
	}

	result.Bytes = total.Load()
	p.options.Logger.Info("published build",
		"bucket", p.options.Bucket,
		"prefix", p.options.Prefix,
		"objects", len(result.Keys),
		"bytes", result.Bytes,
		"dry_run", p.options.DryRun)
	return result, nil
}

// collect lists the files of dir. Documents come back in reverse name
// order so the entry document is stored after the manifest.
func (p *Publisher) collect(dir string) ([]object, error) {
	assetPrefix := path.Clean(filepath.ToSlash(p.options.AssetsDir)) + "/"

	var objects []object
	err := filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, fp)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		objects = append(objects, object{
			path:  fp,
			key:   p.key(rel),
			size:  info.Size(),
			asset: strings.HasPrefix(rel, assetPrefix),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(objects, func(i, j int) bool {
		a, b := objects[i], objects[j]
		if a.asset != b.asset {
			return a.asset
		}
		if a.asset {
			return a.key < b.key
		}
		return a.key > b.key
	})
	return objects, nil
}

func (p *Publisher) key(rel string) string {
	prefix := strings.Trim(p.options.Prefix, "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

func (p *Publisher) put(ctx context.Context, o object) error {
	cacheControl := NoCache
	if o.asset && p.options.CacheControl != "" {
		cacheControl = p.options.CacheControl
	}

	if p.options.DryRun {
		p.options.Logger.Info("would upload", "key", o.key, "bytes", o.size, "cache_control", cacheControl)
		return nil
	}

	f, err := os.Open(o.path)
	if err != nil {
		return errors.New("E151").WithDetail(o.key).Wrap(err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.options.Bucket),
		Key:           aws.String(o.key),
		Body:          f,
		ContentLength: aws.Int64(o.size),
		ContentType:   aws.String(ContentType(o.key)),
		CacheControl:  aws.String(cacheControl),
	})
	if err != nil {
		return errors.New("E151").WithDetail(o.key).Wrap(err)
	}
	p.options.Logger.Debug("uploaded", "key", o.key, "bytes", o.size)
	return nil
}

// ContentType returns the MIME type for key's extension, defaulting to
// application/octet-stream.
func ContentType(key string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(key))); t != "" {
		return t
	}
	return "application/octet-stream"
}
