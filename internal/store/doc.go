// Package store provides SQLite-backed durable storage for form documents.
//
// Store implements port.Port over two tables:
//   - kv: the current value of every key
//   - kv_revisions: an append-only log of every value ever written
//
// Every write is ordered by a logical sequence number, which resumes from
// the highest stored revision when a database is reopened. The write time is
// recorded alongside for display only and never used for ordering.
//
// All revision queries order by seq ASC.
package store
