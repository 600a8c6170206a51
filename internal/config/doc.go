// Package config loads signalshell project configuration.
//
// The configuration lives in signalshell.json, signalshell.yaml or
// signalshell.yml at the project root. ${VAR} references are expanded
// from the environment after the mode's .env files are loaded.
//
// # Configuration File Structure
//
//	static:
//	  dir: public
//	  index: index.html
//	dev:
//	  port: 8080
//	  headers:
//	    X-Content-Type-Options: nosniff
//	  proxy:
//	    - prefix: /api
//	      target: http://127.0.0.1:5000
//	      changeOrigin: true
//	      pathRewrite:
//	        "^/api": ""
//	build:
//	  output: dist
//	  assetsDir: assets
//	  publicPath:
//	    production: /
//	    development: ./
//	routes:
//	  generation: 2
//	  notFound: view
//	runtime:
//	  hydrationMismatchDetails: false
//	publish:
//	  bucket: ${SIGNALSHELL_BUCKET}
//
// # Modes
//
// development, production and preview select the asset base path and the
// env files loaded (.env.<mode>.local, .env.local, .env.<mode>, .env, in
// decreasing priority). The mode comes from a --mode flag, then the
// SIGNALSHELL_MODE variable, then the command's default.
//
// # Usage
//
//	cfg, err := config.LoadProject(".", modeFlag, config.Development)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.DevURL(), cfg.BasePath())
package config
