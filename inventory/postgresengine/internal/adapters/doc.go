// Package adapters provides database driver adapters that abstract the
// differences between pgx, database/sql and sqlx behind common interfaces,
// including the transactions the coordinator needs for its check-then-act
// writes.
package adapters
