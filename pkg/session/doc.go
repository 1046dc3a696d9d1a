/*
Package session serialises access to persisted session snapshots.

A Host replica takes the per-session lock before loading or saving a
snapshot, optionally backed by a distributed lock so that several replicas
sharing one store never interleave writes for the same session.
*/
package session
