// internal/cache/cache.go
package cache

import (
	"context"
	"fmt"
)

// Cache is a JSON read cache in front of the database. It is never consulted by
// money-movement code.
//
// Entries derived from a user's wallet are keyed by that user's generation.
// A commit bumps the generation; readers take the generation before querying
// the database and store what they read under it, so a value read before a
// commit can only land under a generation nobody reads again.
type Cache interface {
	// Get unmarshals the cached value into dest and reports whether the key existed.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// Generation returns the counter stored at key, 0 when it was never bumped.
	Generation(ctx context.Context, key string) (int64, error)
	// Bump increments the counter at key and returns the new value.
	Bump(ctx context.Context, key string) (int64, error)
}

// GenerationKey holds the version of everything cached for a user.
func GenerationKey(userID int64) string {
	return fmt.Sprintf("generation:user:%d", userID)
}

// WalletKey is the cache key of a user's wallet at a generation.
func WalletKey(userID, generation int64) string {
	return fmt.Sprintf("wallet:user:%d:g%d", userID, generation)
}

// TransactionsKey is the cache key of a user's most recent ledger entries at a generation.
func TransactionsKey(userID, generation int64) string {
	return fmt.Sprintf("transactions:user:%d:g%d", userID, generation)
}

// Noop is used when no cache is configured; every lookup misses.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, any) error { return nil }

func (Noop) Generation(context.Context, string) (int64, error) { return 0, nil }

func (Noop) Bump(context.Context, string) (int64, error) { return 0, nil }
