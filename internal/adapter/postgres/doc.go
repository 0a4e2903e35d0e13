// Package postgres implements the PostgreSQL-backed history store.
package postgres
