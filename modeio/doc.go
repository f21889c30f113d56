// Package modeio reads and writes mode tables as CSV.
//
// The first row is the header. The index column (default "index") holds
// numbers or timestamps; timestamps are converted to Unix seconds. An
// optional "label" column is restored as cluster labels. All other columns
// must be numeric.
//
// Files ending in .zst, .gz or .lz4 are transparently (de)compressed:
//
//	t, err := modeio.Load(ctx, store, "bridge/2024-05.csv.zst", modeio.ReadOptions{})
//	err = modeio.Save(ctx, store, "bridge/2024-05.clustered.csv.zst", out, modeio.WriteOptions{})
package modeio
