package blobstore

import (
	"fmt"
	"strings"
)

// Supported location schemes.
const (
	SchemeFile  = "file"
	SchemeS3    = "s3"
	SchemeMinio = "minio"
)

// Location identifies a blob: a bucket and key for object stores, or a path
// in Key for the local file system.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseURI parses "s3://bucket/key", "minio://bucket/key", "file:///path" and
// plain paths.
func ParseURI(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		if uri == "" {
			return Location{}, fmt.Errorf("blobstore: empty location")
		}
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}

	switch scheme {
	case SchemeFile:
		if rest == "" {
			return Location{}, fmt.Errorf("blobstore: empty path in %q", uri)
		}
		return Location{Scheme: SchemeFile, Key: rest}, nil
	case SchemeS3, SchemeMinio:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("blobstore: missing bucket in %q", uri)
		}
		return Location{Scheme: scheme, Bucket: bucket, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("blobstore: unsupported scheme %q", scheme)
	}
}

// String formats the location as a URI.
func (l Location) String() string {
	if l.Scheme == SchemeFile || l.Scheme == "" {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// Join returns a location for name relative to l treated as a directory.
func (l Location) Join(name string) Location {
	key := strings.TrimSuffix(l.Key, "/")
	if key == "" {
		l.Key = name
		return l
	}
	l.Key = key + "/" + name
	return l
}
