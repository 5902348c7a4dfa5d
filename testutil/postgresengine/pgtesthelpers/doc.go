// Package pgtesthelpers provides schema setup and cleanup helpers for
// coordinator integration tests against PostgreSQL.
package pgtesthelpers
