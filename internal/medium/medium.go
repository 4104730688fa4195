// Package medium provides the durable key-value media the record store persists
// its collections into. Each key holds one serialized document; callers own the
// document format.
package medium

import "context"

// Medium is a string-keyed, string-valued durable store. GetItem reports a
// missing key with ok=false and a nil error. RemoveItem on a missing key is a no-op.
type Medium interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}
