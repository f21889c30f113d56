package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri  string
		want Location
	}{
		{"data/modes.csv", Location{Scheme: SchemeFile, Key: "data/modes.csv"}},
		{"file:///tmp/modes.csv", Location{Scheme: SchemeFile, Key: "/tmp/modes.csv"}},
		{"s3://oma/bridge/modes.csv.zst", Location{Scheme: SchemeS3, Bucket: "oma", Key: "bridge/modes.csv.zst"}},
		{"minio://oma", Location{Scheme: SchemeMinio, Bucket: "oma"}},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "s3:///key", "gs://bucket/key", "file://"} {
		_, err := ParseURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocation(t *testing.T) {
	loc := Location{Scheme: SchemeS3, Bucket: "oma", Key: "out/"}
	assert.Equal(t, "s3://oma/out/modes.csv", loc.Join("modes.csv").String())
	assert.Equal(t, "s3://oma/x", Location{Scheme: SchemeS3, Bucket: "oma"}.Join("x").String())
	assert.Equal(t, "out/modes.csv", Location{Scheme: SchemeFile, Key: "out"}.Join("modes.csv").String())
}
