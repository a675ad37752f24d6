// Package repository retains finished evaluations in memory.
package repository

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithCapacity sets how many evaluations are retained before the oldest is evicted.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}
