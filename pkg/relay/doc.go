// Package relay routes messages between Hosts, which execute page scripts,
// and Clients, which display them.
//
// A Host registers its pages during the handshake. A Client opens or
// reattaches to a session of one page and the relay forwards its commits to
// the Host that owns the page, while everything the Host renders for the
// session is fanned out to every attached Client.
//
// Every connection has a single writer goroutine fed by a bounded FIFO, so
// messages of one session keep their order end to end and a slow peer
// applies back-pressure instead of losing messages.
package relay
