// Package reconcile maps the widgets declared by a script pass onto the tree
// of the previous pass.
//
// Identity is positional: a widget keeps its id and committed value only when
// the same kind occupies the same path as before. Anything else gets a fresh
// id and its declared default. Inserting a widget early in a container
// therefore shifts, and resets, every later sibling.
package reconcile
