// Package postgresengine provides the Postgres-backed availability and
// consistency coordinator.
//
// The Coordinator keeps item display status and availability consistent with
// the live rentals, reservations and bookings that claim copies. Every
// obligation mutation runs in a single transaction: the affected item rows
// are locked with SELECT ... FOR UPDATE, availability is recomputed from
// live obligation counts, and the obligation write plus every resulting item
// status write commit together or not at all.
//
// Three database adapters are supported, chosen by constructor:
//
//	pgxpool.Pool  via NewCoordinatorFromPGXPool
//	sql.DB        via NewCoordinatorFromSQLDB
//	sqlx.DB       via NewCoordinatorFromSQLX
//
// Observability is injected through small local ports (Logger,
// MetricsCollector, TracingCollector, ContextualLogger) so the package has
// no hard dependency on any telemetry stack. Typed before-commit and
// after-commit hooks are registered on an inventory.HookRegistry and passed
// in with WithHooks.
package postgresengine
