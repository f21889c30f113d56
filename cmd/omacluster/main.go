// Command omacluster clusters operational modal analysis results.
//
// Usage:
//
//	omacluster cluster [flags] <input>...
//	omacluster version
//
// Inputs are CSV mode tables, optionally compressed (.zst, .gz, .lz4), given
// as local paths or s3:// and minio:// URIs. Settings are read from
// omacluster.yaml (current directory or $HOME), OMACLUSTER_* environment
// variables and flags, in increasing precedence.
package main

import (
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
