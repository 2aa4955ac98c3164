package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/gameplay"
)

// Hub tests drive addClient and handleMessage directly, the same calls
// Run and ReadPump make, so no sockets are involved.

func newTestHub(saveEvery int) (*Hub, *int) {
	saves := 0
	loader := func(projectID string) (*canvas.State, error) {
		return fixtureState(), nil
	}
	saver := func(projectID string, state *canvas.State) error {
		saves++
		return nil
	}
	return NewHub(loader, saver, saveEvery), &saves
}

func newTestClient(id string) *Client {
	return &Client{
		send:      make(chan []byte, 256),
		UserID:    "user-" + id,
		ProjectID: "proj-1",
		ClientID:  id,
	}
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return msg
	default:
		t.Fatalf("client %s has no queued frame", c.ClientID)
	}
	return Message{}
}

func recvNone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("client %s got unexpected frame %s", c.ClientID, data)
	default:
	}
}

func submit(t *testing.T, h *Hub, sender *Client, op Operation) {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	if err != nil {
		t.Fatalf("marshal operation: %v", err)
	}
	h.handleMessage(sender, &Message{Type: TypeOpSubmit, ProjectID: sender.ProjectID, Payload: payload})
}

func join(t *testing.T, h *Hub, c *Client) WelcomePayload {
	t.Helper()
	h.addClient(c)
	msg := recv(t, c)
	if msg.Type != TypeWelcome {
		t.Fatalf("first frame = %s, want %s", msg.Type, TypeWelcome)
	}
	var welcome WelcomePayload
	if err := json.Unmarshal(msg.Payload, &welcome); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	return welcome
}

func TestHubWelcomeCarriesDocument(t *testing.T) {
	h, _ := newTestHub(0)
	c := newTestClient("a")

	welcome := join(t, h, c)
	if welcome.ClientID != "a" {
		t.Errorf("welcome.ClientID = %q, want a", welcome.ClientID)
	}
	if welcome.ServerSeq != 0 {
		t.Errorf("welcome.ServerSeq = %d, want 0", welcome.ServerSeq)
	}
	if welcome.State == nil || len(welcome.State.Artboards) != 2 {
		t.Fatalf("welcome state = %+v, want the loaded document", welcome.State)
	}
}

func TestHubAcksAndBroadcasts(t *testing.T) {
	h, _ := newTestHub(0)
	a, b := newTestClient("a"), newTestClient("b")
	join(t, h, a)
	join(t, h, b)

	submit(t, h, a, shapeOp("op-1", "board-a"))

	ackMsg := recv(t, a)
	if ackMsg.Type != TypeOpAck {
		t.Fatalf("sender frame = %s, want %s", ackMsg.Type, TypeOpAck)
	}
	var ack OperationAckPayload
	if err := json.Unmarshal(ackMsg.Payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.OperationID != "op-1" || !ack.Applied || ack.ServerSeq != 1 {
		t.Fatalf("ack = %+v, want applied op-1 at seq 1", ack)
	}
	createdID(t, ack.Result, "elementId")
	recvNone(t, a)

	bcastMsg := recv(t, b)
	if bcastMsg.Type != TypeOpBroadcast {
		t.Fatalf("peer frame = %s, want %s", bcastMsg.Type, TypeOpBroadcast)
	}
	var bcast OperationBroadcastPayload
	if err := json.Unmarshal(bcastMsg.Payload, &bcast); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if bcast.Operation.Type != OpElementAdd || bcast.UserID != "user-a" || bcast.ServerSeq != 1 {
		t.Fatalf("broadcast = %+v, want user-a's element.add at seq 1", bcast)
	}
}

func TestHubNacksMalformedOp(t *testing.T) {
	h, _ := newTestHub(0)
	a, b := newTestClient("a"), newTestClient("b")
	join(t, h, a)
	join(t, h, b)

	submit(t, h, a, Operation{ID: "op-bad", Type: "element.teleport"})

	msg := recv(t, a)
	if msg.Type != TypeOpNack {
		t.Fatalf("sender frame = %s, want %s", msg.Type, TypeOpNack)
	}
	var nack OperationNackPayload
	if err := json.Unmarshal(msg.Payload, &nack); err != nil {
		t.Fatalf("unmarshal nack: %v", err)
	}
	if nack.OperationID != "op-bad" || nack.Reason == "" {
		t.Fatalf("nack = %+v, want op-bad with a reason", nack)
	}
	recvNone(t, b)
}

func TestHubNoopAcksWithoutBroadcast(t *testing.T) {
	h, _ := newTestHub(0)
	a, b := newTestClient("a"), newTestClient("b")
	join(t, h, a)
	join(t, h, b)

	submit(t, h, a, Operation{ID: "op-1", Type: OpElementRemove, ElementID: "nope"})

	var ack OperationAckPayload
	msg := recv(t, a)
	if err := json.Unmarshal(msg.Payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Applied || ack.ServerSeq != 0 {
		t.Fatalf("ack = %+v, want unapplied at seq 0", ack)
	}
	recvNone(t, b)
}

func TestHubUndoSendsFullState(t *testing.T) {
	h, _ := newTestHub(0)
	a, b := newTestClient("a"), newTestClient("b")
	join(t, h, a)
	join(t, h, b)

	submit(t, h, a, shapeOp("op-1", "board-a"))
	recv(t, a)
	recv(t, b)

	submit(t, h, a, Operation{ID: "op-2", Type: OpCanvasUndo})
	recv(t, a) // ack

	for _, c := range []*Client{a, b} {
		msg := recv(t, c)
		if msg.Type != TypeDocSync {
			t.Fatalf("client %s frame = %s, want %s", c.ClientID, msg.Type, TypeDocSync)
		}
		var sync DocSyncPayload
		if err := json.Unmarshal(msg.Payload, &sync); err != nil {
			t.Fatalf("unmarshal sync: %v", err)
		}
		if len(sync.State.Elements) != 0 {
			t.Fatalf("synced state has %d elements after undo, want 0", len(sync.State.Elements))
		}
	}
}

func TestHubResyncOnRequest(t *testing.T) {
	h, _ := newTestHub(0)
	a := newTestClient("a")
	join(t, h, a)

	h.handleMessage(a, &Message{Type: TypeDocSync, ProjectID: a.ProjectID})

	msg := recv(t, a)
	if msg.Type != TypeDocSync {
		t.Fatalf("frame = %s, want %s", msg.Type, TypeDocSync)
	}
}

func TestHubSavesEveryN(t *testing.T) {
	h, saves := newTestHub(2)
	a := newTestClient("a")
	join(t, h, a)

	for i, opID := range []string{"op-1", "op-2", "op-3", "op-4"} {
		submit(t, h, a, shapeOp(opID, "board-a"))
		recv(t, a)
		want := (i + 1) / 2
		if *saves != want {
			t.Fatalf("saves after %d ops = %d, want %d", i+1, *saves, want)
		}
	}
}

func TestHubFlushesWhenRoomCloses(t *testing.T) {
	h, saves := newTestHub(100)
	a := newTestClient("a")
	join(t, h, a)

	submit(t, h, a, shapeOp("op-1", "board-a"))
	recv(t, a)
	if *saves != 0 {
		t.Fatalf("saves before leave = %d, want 0", *saves)
	}

	h.removeClient(a)
	if *saves != 1 {
		t.Fatalf("saves after last client left = %d, want 1", *saves)
	}
	if h.room("proj-1") != nil {
		t.Fatal("room still open after last client left")
	}
	if _, open := <-a.send; open {
		t.Fatal("send channel still open after leave")
	}
}

func TestHubStopFlushesOpenRooms(t *testing.T) {
	h, saves := newTestHub(100)
	a := newTestClient("a")
	join(t, h, a)
	submit(t, h, a, shapeOp("op-1", "board-a"))

	h.Stop()
	if *saves != 1 {
		t.Fatalf("saves after stop = %d, want 1", *saves)
	}
	// Unregister after stop must not block.
	h.Unregister(a)
}

func TestHubCleanRoomSkipsSave(t *testing.T) {
	h, saves := newTestHub(100)
	a := newTestClient("a")
	join(t, h, a)

	h.removeClient(a)
	if *saves != 0 {
		t.Fatalf("saves for untouched document = %d, want 0", *saves)
	}
}

func TestHubSpinPreview(t *testing.T) {
	h, _ := newTestHub(0)
	a, b := newTestClient("a"), newTestClient("b")
	join(t, h, a)
	join(t, h, b)

	submit(t, h, a, Operation{
		ID:   "op-spin",
		Type: OpSlotSpin,
		Symbols: []gameplay.Symbol{
			{ID: "cherry", Name: "Cherry"},
			{ID: "seven", Name: "Seven"},
			{ID: "bell", Name: "Bell"},
		},
	})

	msg := recv(t, a)
	if msg.Type != TypeOpAck {
		t.Fatalf("frame = %s, want %s", msg.Type, TypeOpAck)
	}
	var ack OperationAckPayload
	if err := json.Unmarshal(msg.Payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if !ack.Applied || ack.ServerSeq != 0 {
		t.Fatalf("ack = %+v, want applied without advancing the document", ack)
	}
	var res gameplay.SpinResult
	if err := json.Unmarshal(ack.Result, &res); err != nil {
		t.Fatalf("unmarshal spin result: %v", err)
	}
	if len(res.Reels) != 3 || len(res.Reels[0]) != 3 {
		t.Fatalf("reels = %v, want a 3x3 grid", res.Reels)
	}

	// Spins never touch the document or reach peers.
	recvNone(t, b)
	room := h.room("proj-1")
	room.mu.Lock()
	elements := len(room.store.State().Elements)
	room.mu.Unlock()
	if elements != 0 {
		t.Fatalf("document has %d elements after spin, want 0", elements)
	}
}

func TestHubSpinWithoutSymbolsNacks(t *testing.T) {
	h, _ := newTestHub(0)
	a := newTestClient("a")
	join(t, h, a)

	submit(t, h, a, Operation{ID: "op-spin", Type: OpSlotSpin})

	msg := recv(t, a)
	if msg.Type != TypeOpNack {
		t.Fatalf("frame = %s, want %s", msg.Type, TypeOpNack)
	}
}

func TestHubRejectsClientWhenLoadFails(t *testing.T) {
	loader := func(projectID string) (*canvas.State, error) {
		return nil, errors.New("boom")
	}
	saver := func(projectID string, state *canvas.State) error { return nil }
	h := NewHub(loader, saver, 0)

	a := newTestClient("a")
	h.addClient(a)

	msg := recv(t, a)
	if msg.Type != TypeError {
		t.Fatalf("frame = %s, want %s", msg.Type, TypeError)
	}
	if _, open := <-a.send; open {
		t.Fatal("send channel left open for rejected client")
	}

	// The unregister that follows the failed join must not double-close.
	h.removeClient(a)
}
