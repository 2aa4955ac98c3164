// Package session runs the live editing socket: one room per project,
// one authoritative canvas store per room, operations in and acks,
// rejections and broadcasts out. There is no merge logic on this wire;
// the room mutex serializes writers and extra tabs of the same user
// simply resync from doc.sync frames.
package session

import (
	"encoding/json"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
)

// Message is the wire envelope for every frame in both directions.
type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// TypeWelcome carries the client id and the full canvas state on join.
	TypeWelcome = "welcome"
	// TypeDocSync carries the full canvas state; sent when a client asks
	// to resync or after it falls behind.
	TypeDocSync = "doc.sync"

	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	TypeError = "error"
)

type WelcomePayload struct {
	ClientID  string        `json:"clientId"`
	ServerSeq int64         `json:"serverSeq"`
	State     *canvas.State `json:"state"`
}

type DocSyncPayload struct {
	ServerSeq int64         `json:"serverSeq"`
	State     *canvas.State `json:"state"`
}

type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OperationAckPayload struct {
	OperationID string          `json:"operationId"`
	ServerSeq   int64           `json:"serverSeq"`
	Applied     bool            `json:"applied"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
