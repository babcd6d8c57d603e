package cache

import "time"

// BytesCache stores pre-rendered response bodies with a TTL. The bot
// endpoints cache whole JSON payloads, so values are raw bytes rather
// than typed entries.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
