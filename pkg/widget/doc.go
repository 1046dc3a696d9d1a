/*
Package widget defines the widget model shared by the Host, the Relay Server and the Client.

A widget is a tagged union: every variant is a concrete struct implementing Content,
and every consumer that must handle all variants does so through Visitor, so adding a
variant is a compile-time change everywhere it matters.

# Key Types

  - Widget: identity (ID), position (Path) and variant payload (Content).
  - Path: depth-first, declaration-order address of a widget within one script pass.
  - Optional: explicit "unset" for values where zero is meaningful.
*/
package widget
