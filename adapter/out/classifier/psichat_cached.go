package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"psichat_server/core/port/out"
	"psichat_server/pkg/logger"
	"psichat_server/pkg/metrics"
)

// DefaultCacheTTL is used when NewCached receives a non-positive TTL.
const DefaultCacheTTL = time.Hour

// Cached remembers classifier output per text. Cache failures are logged and
// the wrapped classifier is used instead.
type Cached struct {
	inner out.TextClassifier
	cache out.JSONCache
	ttl   time.Duration
	model string
}

var _ out.TextClassifier = (*Cached)(nil)

// Versioned is implemented by classifiers whose output depends on loaded
// model content. The version becomes part of the cache key.
type Versioned interface {
	Version() string
}

// NewCached wraps inner. A nil cache returns inner unchanged.
func NewCached(inner out.TextClassifier, cache out.JSONCache, ttl time.Duration) out.TextClassifier {
	if cache == nil || inner == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	model := inner.Name()
	if v, ok := inner.(Versioned); ok && v.Version() != "" {
		model += "@" + v.Version()
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl, model: model}
}

// Name returns the wrapped classifier's name.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Classify serves from cache, falling back to the wrapped classifier on a miss.
func (c *Cached) Classify(ctx context.Context, text string) ([]out.LabelProbability, error) {
	key := CacheKey(c.model, text)

	var cached []out.LabelProbability
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.WithError(err).Warn("[Classifier] cache read failed for %s", c.inner.Name())
	}
	if hit && len(cached) > 0 {
		return cached, nil
	}

	start := time.Now()
	probs, err := c.inner.Classify(ctx, text)
	metrics.Since("classify."+c.inner.Name(), start)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, key, probs, c.ttl); err != nil {
		logger.WithError(err).Warn("[Classifier] cache write failed for %s", c.inner.Name())
	}
	return probs, nil
}

// CacheKey is "classifier:<model>:<sha256(text)>", where model is the
// classifier name plus "@<version>" when it has one.
func CacheKey(name, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "classifier:" + name + ":" + hex.EncodeToString(sum[:])
}
