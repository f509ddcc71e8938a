package reader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/table"
)

// DefaultConcurrency is the number of shards decoded at once when a Loader
// does not say otherwise.
const DefaultConcurrency = 4

// Loader decodes many shards in parallel and hands them back in path order.
type Loader struct {
	Decoder     Decoder
	Concurrency int
	Logger      logger.Logger
}

func (l *Loader) concurrency() int {
	if l.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return l.Concurrency
}

func (l *Loader) logger() logger.Logger {
	if l.Logger == nil {
		return logger.NopLogger
	}
	return l.Logger
}

// Load decodes every path with the given projection and returns the tables
// in the order of paths. The first decode failure cancels the rest and is
// returned.
func (l *Loader) Load(ctx context.Context, paths []string, columns []string) ([]*table.Table, error) {
	tables := make([]*table.Table, len(paths))
	err := l.Stream(ctx, paths, columns, func(i int, t *table.Table) error {
		tables[i] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// Stream decodes paths in parallel and calls fn once per shard, strictly in
// path order, from a single goroutine. At most Concurrency decoded shards
// are held at any time, counting the one fn is working on.
func (l *Loader) Stream(ctx context.Context, paths []string, columns []string, fn func(i int, t *table.Table) error) error {
	if l.Decoder == nil {
		return errors.New(errors.ErrInvalidConfig, "loader has no decoder")
	}

	g, gctx := errgroup.WithContext(ctx)
	slots := make([]chan *table.Table, len(paths))
	for i := range slots {
		slots[i] = make(chan *table.Table, 1)
	}
	sem := make(chan struct{}, l.concurrency())

	g.Go(func() error {
		for i, path := range paths {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			i, path := i, path
			g.Go(func() error {
				t, err := l.decode(gctx, path, columns)
				if err != nil {
					return err
				}
				slots[i] <- t
				return nil
			})
		}
		return nil
	})

	g.Go(func() error {
		for i := range paths {
			select {
			case t := <-slots[i]:
				err := fn(i, t)
				<-sem
				if err != nil {
					return err
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}

func (l *Loader) decode(ctx context.Context, path string, columns []string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := l.Decoder.Decode(path, columns)
	if err != nil {
		return nil, err
	}
	l.logger().Debugf("decoded %s: %d rows, %d columns", path, t.NumRows(), t.NumCols())
	return t, nil
}

// KeyResolver picks and decodes the key table among candidate files.
type KeyResolver struct {
	Decoder Decoder
	Logger  logger.Logger
}

// Select applies the first-match policy: the lexicographically first
// candidate wins. Zero candidates is ErrNotFound.
func (r *KeyResolver) Select(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New(errors.ErrNotFound, "no key table found")
	}
	if len(paths) > 1 && r.Logger != nil {
		r.Logger.Infof("%d key table candidates, using %s", len(paths), paths[0])
	}
	return paths[0], nil
}

// Resolve selects the key table and decodes all of its columns.
func (r *KeyResolver) Resolve(paths []string) (*table.Table, error) {
	path, err := r.Select(paths)
	if err != nil {
		return nil, err
	}
	return r.Decoder.Decode(path, nil)
}
