// Package redis implements the Redis-backed result cache store.
package redis
