package bloom

import "context"

// bitSetProvider abstracts the backing bit set of the Bloom filter.
type bitSetProvider interface {
	set(ctx context.Context, offsets []uint) error
	check(ctx context.Context, offsets []uint) (bool, error)
	del(ctx context.Context) error
}
