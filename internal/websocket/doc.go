// Package websocket pushes dataset lifecycle events to browser clients.
//
// A Hub owns the set of connected clients and implements the dataset
// service's event publisher: every Publish call becomes a JSON frame
//
//	{"type":"dataset:loaded","data":{...},"timestamp":"2025-10-01T08:00:00Z"}
//
// sent to every client. Clients that cannot keep up are disconnected rather
// than allowed to stall the broadcast loop.
package websocket
