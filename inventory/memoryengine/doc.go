// Package memoryengine provides an in-memory availability and consistency
// coordinator with the same operation surface and semantics as the Postgres
// engine.
//
// It exists for tests and embedders that want coordinator behavior without a
// database: one mutex plays the role of the transaction, mutations are
// validated and planned first and applied only after every check passed, so
// a failed operation never leaves partial state behind. A commit interceptor
// can be injected to simulate commit failures.
package memoryengine
