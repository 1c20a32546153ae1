package domain

import "context"

type cacheBypassKey struct{}

// BypassCache marks ctx so cached repositories read straight from the store.
func BypassCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheBypassKey{}, true)
}

// CacheBypassed reports whether ctx was marked with BypassCache.
func CacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(cacheBypassKey{}).(bool)
	return v
}
