package dataset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
)

var shardRegexp = regexp.MustCompile(`^[^.].*\.csv$`)

// DiscoverShards returns the CSV files beneath root in lexical path order.
func DiscoverShards(root string) ([]string, error) {
	entries := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if shardRegexp.MatchString(d.Name()) {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover shards")
	}
	sort.Strings(entries)
	return entries, nil
}

// LoadPath reads a single CSV file, or every CSV shard under a directory
// using up to workers concurrent readers. Shards are concatenated in
// discovery order.
func LoadPath(ctx context.Context, path string, workers int) ([]Example, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataset: stat")
	}
	if !info.IsDir() {
		return LoadCSV(path)
	}

	shards, err := DiscoverShards(path)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, errors.Errorf("dataset: no csv shards under %s", path)
	}
	if workers <= 0 {
		workers = 1
	}

	parts := make([][]Example, len(shards))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers).WithCancelOnError().WithFirstError()
	for i, shard := range shards {
		i, shard := i, shard
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			examples, err := LoadCSV(shard)
			if err != nil {
				return errors.Wrapf(err, "shard %s", shard)
			}
			parts[i] = examples
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var out []Example
	for _, part := range parts {
		out = append(out, part...)
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}
