// Package message defines the call-control envelope exchanged with a
// connection manager: one payload type per kind, fixed wire discriminants,
// a binary TLV codec and a JSON form for HTTP clients.
//
// Kinds added by a newer engine decode to Unrecognized so they can still be
// queued and forwarded.
package message
