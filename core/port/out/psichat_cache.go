package out

import (
	"context"
	"time"
)

// JSONCache stores JSON encoded values under string keys.
type JSONCache interface {
	// GetJSON decodes the cached value into dest. It reports false on a miss.
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}
