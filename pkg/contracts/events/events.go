// Package events defines the realtime messages pushed to websocket clients.
//
// Every frame is a Message envelope. The server greets each client with a
// "connection" message and then pushes a dataset event whenever a dataset is
// stored or a load fails. Clients only ever send {"type":"heartbeat"}.
package events

// Message types
const (
	TypeConnection    = "connection"
	TypeHeartbeat     = "heartbeat"
	TypeDatasetLoaded = "dataset:loaded"
	TypeDatasetFailed = "dataset:failed"
)

// Message is the envelope of every frame pushed to clients
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Connection is the greeting payload
type Connection struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// DatasetEvent is the payload of dataset:loaded and dataset:failed
type DatasetEvent struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	ValidRows int    `json:"valid_rows,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Anomalies int    `json:"anomalies,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}
