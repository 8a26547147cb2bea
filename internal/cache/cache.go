// Package cache provides the query-result cache used by list endpoints.
//
// Entries are keyed by the serialized query and hold the encoded response. Any
// write to the backing collection clears the whole cache.
package cache

import "context"

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Clear(ctx context.Context)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte)        {}
func (Noop) Clear(context.Context)                      {}
