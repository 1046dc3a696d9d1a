// Package protocol defines the messages exchanged between a Host, the relay
// and its Clients, and their JSON encoding.
//
// Every message is an envelope with an id and exactly one payload kind:
//
//	{"id": "01HX...", "renderWidget": {"sessionId": "...", ...}}
//
// Decoding never drops input silently: malformed envelopes and unknown kinds
// return a *DecodeError carrying the message id when it could be read, so the
// receiver can answer with an Exception.
package protocol
