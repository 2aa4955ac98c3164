package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/gameplay"
	"github.com/spinstudio/spinstudio/backend-go/internal/middleware"
)

// DefaultSaveEvery is how many applied operations a room buffers before
// flushing the document to the saver.
const DefaultSaveEvery = 25

const spinTimeout = 5 * time.Second

// DocLoader fetches the canvas state for a project when its room opens.
type DocLoader func(projectID string) (*canvas.State, error)

// DocSaver persists the canvas state. It is called with the room lock
// held, so implementations must not call back into the hub.
type DocSaver func(projectID string, state *canvas.State) error

// Room is one open project: the authoritative store, the connected
// clients and the spin stub for slot previews. The mutex serializes
// every operation against the store.
type Room struct {
	projectID string
	clients   map[string]*Client // clientID -> client

	mu           sync.Mutex
	store        *canvas.Store
	slots        gameplay.Renderer
	serverSeq    int64
	opsSinceSave int
	dirty        bool
}

func newRoom(projectID string, state *canvas.State) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		store:     canvas.NewStore(state),
		slots:     gameplay.NewStaticRenderer(time.Now().UnixNano()),
	}
}

// syncMessage builds a full-state frame. Callers must hold r.mu.
func (r *Room) syncMessage() *Message {
	payload, _ := json.Marshal(DocSyncPayload{ServerSeq: r.serverSeq, State: r.store.State()})
	return &Message{Type: TypeDocSync, ProjectID: r.projectID, Seq: r.serverSeq, Payload: payload}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	loader    DocLoader
	saver     DocSaver
	saveEvery int
}

func NewHub(loader DocLoader, saver DocSaver, saveEvery int) *Hub {
	if saveEvery <= 0 {
		saveEvery = DefaultSaveEvery
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		saver:      saver,
		saveEvery:  saveEvery,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop shuts the hub down and flushes every open room. pumps still
// draining unregister after this point fall through the done channel.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		h.flushRoom(room)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.RLock()
	room, ok := h.rooms[client.ProjectID]
	h.mu.RUnlock()

	if !ok {
		state, err := h.loader(client.ProjectID)
		if err != nil {
			slog.Error("load document", "error", err, "project", client.ProjectID)
			client.Send(errorMessage("project unavailable"))
			close(client.send)
			return
		}
		room = newRoom(client.ProjectID, state)
		h.mu.Lock()
		h.rooms[client.ProjectID] = room
		h.mu.Unlock()
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Welcome the client with the full document
	room.mu.Lock()
	payload, _ := json.Marshal(WelcomePayload{
		ClientID:  client.ClientID,
		ServerSeq: room.serverSeq,
		State:     room.store.State(),
	})
	room.mu.Unlock()
	client.Send(&Message{Type: TypeWelcome, ProjectID: room.projectID, Payload: payload})

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		// Rejected before joining; its channel is already closed.
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ProjectID)
	}
	h.mu.Unlock()

	if empty {
		h.flushRoom(room)
	}

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeOpSubmit:
		h.handleOperation(sender, msg)
	case TypeDocSync:
		// Client asked for a fresh copy of the document
		room := h.room(sender.ProjectID)
		if room == nil {
			return
		}
		room.mu.Lock()
		sync := room.syncMessage()
		room.mu.Unlock()
		sender.Send(sync)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleOperation(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		sender.Send(nackMessage("", "invalid operation payload"))
		return
	}
	op := submit.Operation

	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}

	// Spins preview gameplay without touching the document.
	if op.Type == OpSlotSpin {
		h.handleSpin(sender, room, op)
		return
	}

	room.mu.Lock()
	result, applied, err := Apply(room.store, op)
	if err != nil {
		room.mu.Unlock()
		middleware.CountSessionOp(op.Type, "rejected")
		sender.Send(nackMessage(op.ID, err.Error()))
		return
	}

	if applied {
		room.serverSeq++
		room.opsSinceSave++
		room.dirty = true
	}
	seq := room.serverSeq
	needsSave := applied && room.opsSinceSave >= h.saveEvery

	// Undo and redo rewrite arbitrary slices of the document, so peers
	// get a full-state frame instead of the operation.
	var sync *Message
	if applied && (op.Type == OpCanvasUndo || op.Type == OpCanvasRedo) {
		sync = room.syncMessage()
	}
	room.mu.Unlock()

	ack, _ := json.Marshal(OperationAckPayload{
		OperationID: op.ID,
		ServerSeq:   seq,
		Applied:     applied,
		Result:      result,
	})
	sender.Send(&Message{Type: TypeOpAck, ProjectID: room.projectID, Seq: seq, Payload: ack})

	if !applied {
		middleware.CountSessionOp(op.Type, "noop")
		return
	}
	middleware.CountSessionOp(op.Type, "applied")

	if sync != nil {
		h.broadcastToRoom(room.projectID, sync, "")
	} else {
		payload, _ := json.Marshal(OperationBroadcastPayload{
			Operation: op,
			UserID:    sender.UserID,
			ServerSeq: seq,
		})
		h.broadcastToRoom(room.projectID, &Message{
			Type:      TypeOpBroadcast,
			ProjectID: room.projectID,
			UserID:    sender.UserID,
			Seq:       seq,
			Payload:   payload,
		}, sender.ClientID)
	}

	if needsSave {
		h.flushRoom(room)
	}
}

func (h *Hub) handleSpin(sender *Client, room *Room, op Operation) {
	ctx, cancel := context.WithTimeout(context.Background(), spinTimeout)
	defer cancel()

	if len(op.Symbols) > 0 {
		if err := room.slots.LoadSymbols(ctx, op.Symbols); err != nil {
			middleware.CountSessionOp(op.Type, "rejected")
			sender.Send(nackMessage(op.ID, err.Error()))
			return
		}
	}

	res, err := room.slots.Spin(ctx)
	if err != nil {
		middleware.CountSessionOp(op.Type, "rejected")
		sender.Send(nackMessage(op.ID, err.Error()))
		return
	}
	middleware.CountSessionOp(op.Type, "applied")

	result, _ := json.Marshal(res)
	room.mu.Lock()
	seq := room.serverSeq
	room.mu.Unlock()

	ack, _ := json.Marshal(OperationAckPayload{
		OperationID: op.ID,
		ServerSeq:   seq,
		Applied:     true,
		Result:      result,
	})
	sender.Send(&Message{Type: TypeOpAck, ProjectID: room.projectID, Seq: seq, Payload: ack})
}

// flushRoom saves the document if the room has unsaved operations. The
// saver runs under the room lock so the state cannot move underneath it.
func (h *Hub) flushRoom(room *Room) {
	room.mu.Lock()
	if !room.dirty {
		room.mu.Unlock()
		return
	}
	err := h.saver(room.projectID, room.store.State())
	if err == nil {
		room.dirty = false
		room.opsSinceSave = 0
	}
	room.mu.Unlock()

	if err != nil {
		slog.Error("save document", "error", err, "project", room.projectID)
	}
}

func (h *Hub) room(projectID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[projectID]
}

func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func nackMessage(opID, reason string) *Message {
	payload, _ := json.Marshal(OperationNackPayload{OperationID: opID, Reason: reason})
	return &Message{Type: TypeOpNack, Payload: payload}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: text})
	return &Message{Type: TypeError, Payload: payload}
}
