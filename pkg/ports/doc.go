/*
Package ports defines the driven ports (interfaces) of sourcetool.

These interfaces decouple the Host, relay and Client from concrete transports
and storage backends.

# Key Interfaces

  - Conn: an ordered, reliable, bidirectional message stream (websocket, in-memory pipe).
  - SessionStore: persists session snapshots (memory, Redis, bbolt).
  - DistributedLocker: coordinates session access across Host replicas.

RunSessionStoreContract and RunConnContract verify adapters against these contracts.
*/
package ports
