// Package build produces the static bundle of a signalshell application.
//
// The static directory is copied into the output with every asset
// fingerprinted, the entry document's asset references are rewritten to
// the mode's base path and a manifest records the mapping.
//
// # Usage
//
//	builder := build.New(cfg, build.Options{Mode: config.Production})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Built %d assets in %s\n", result.Assets, result.Duration)
//
// # Output Structure
//
//	dist/
//	├── index.html        # Entry document, references rewritten
//	├── assets/           # Static files named <name>.<hash8>.<ext>
//	└── manifest.json     # Asset manifest
//
// %BASE_URL% anywhere in the entry document is replaced with the base
// path.
package build
