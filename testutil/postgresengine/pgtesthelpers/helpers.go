package pgtesthelpers

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		copies INTEGER NOT NULL CHECK (copies >= 1),
		status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id UUID PRIMARY KEY,
		item_ids JSONB NOT NULL,
		rented_on TIMESTAMPTZ NOT NULL,
		expected_on TIMESTAMPTZ NOT NULL,
		returned_on TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id UUID PRIMARY KEY,
		item_ids JSONB NOT NULL,
		pickup TIMESTAMPTZ NOT NULL,
		done BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rentals_item_ids ON rentals USING GIN (item_ids)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_item_ids ON reservations USING GIN (item_ids)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_item_id ON bookings (item_id)`,
}

// CreateSchema creates the coordinator tables in the test database.
func CreateSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	for _, statement := range schemaStatements {
		_, err := pool.Exec(ctx, statement)
		require.NoError(t, err, "creating schema")
	}
}

// CleanUp truncates all coordinator tables so each test starts empty.
func CleanUp(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, `TRUNCATE TABLE items, rentals, reservations, bookings`)
	require.NoError(t, err, "truncating tables")
}
