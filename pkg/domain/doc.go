/*
Package domain contains the core models shared by the Host, the relay and the Client.

It is free of I/O: transports and stores live behind pkg/ports.

# Key Entities

  - Page: a script entry point. Its id is derived from its route.
  - Lifecycle: the per-session state machine that sequences script passes.
  - Snapshot: what a Host persists about a session after every pass.
  - LifecycleHooks: callbacks fired around script passes for logs and metrics.
*/
package domain
