package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/models"
)

func TestBusPublishesInOrderAndUnsubscribes(t *testing.T) {
	bus := NewBus()
	var got []string
	unsubA := bus.Subscribe(func(ev models.Event) { got = append(got, "a:"+string(ev.Kind)) })
	bus.Subscribe(func(ev models.Event) { got = append(got, "b:"+string(ev.Kind)) })

	bus.Publish(models.Event{Kind: models.EventTransactionAdded})
	unsubA()
	unsubA()
	bus.Publish(models.Event{Kind: models.EventTransactionDeleted})

	want := []string{"a:transaction_added", "b:transaction_added", "b:transaction_deleted"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	return dialHubAs(t, hub, "")
}

// dialHubAs connects with owner in the query string.
func dialHubAs(t *testing.T, hub *Hub, owner string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?owner=" + owner
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(func(r *http.Request) bool { return true })
	hub.Start()
	defer hub.Stop()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Publish(models.Event{Kind: models.EventTransactionSoftDeleted, TransactionID: 7, Title: "Rent"})
	msg := readMessage(t, conn)
	if string(msg["type"]) != `"event"` {
		t.Fatalf("type = %s", msg["type"])
	}
	var ev models.Event
	if err := json.Unmarshal(msg["event"], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != models.EventTransactionSoftDeleted || ev.TransactionID != 7 {
		t.Errorf("event = %+v", ev)
	}

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubSendsSnapshotOnConnect(t *testing.T) {
	hub := NewHub(func(r *http.Request) bool { return true })
	hub.SetSnapshot(func(owner string) *models.View {
		if owner != "" {
			return nil
		}
		return &models.View{Today: "2024-05-10", Balance: decimal.NewFromInt(70)}
	})
	hub.Start()
	defer hub.Stop()

	conn := dialHub(t, hub)
	msg := readMessage(t, conn)
	if string(msg["type"]) != `"view"` {
		t.Fatalf("type = %s", msg["type"])
	}
	var view models.View
	if err := json.Unmarshal(msg["view"], &view); err != nil {
		t.Fatal(err)
	}
	if view.Today != "2024-05-10" || !view.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("view = %+v", view)
	}
}

func TestHubSendsViewsOnlyToTheirOwner(t *testing.T) {
	hub := NewHub(func(r *http.Request) bool { return true })
	hub.SetIdentify(func(r *http.Request) string { return r.URL.Query().Get("owner") })
	hub.Start()
	defer hub.Stop()

	alice := dialHubAs(t, hub, "alice")
	bob := dialHubAs(t, hub, "bob")
	waitForClients(t, hub, 2)

	hub.BroadcastView("alice", &models.View{Today: "2024-05-10"})
	hub.Publish(models.Event{Kind: models.EventTransactionAdded})

	if msg := readMessage(t, alice); string(msg["type"]) != `"view"` {
		t.Errorf("alice: first message type = %s, want view", msg["type"])
	}
	if msg := readMessage(t, alice); string(msg["type"]) != `"event"` {
		t.Errorf("alice: second message type = %s, want event", msg["type"])
	}
	// Messages arrive in order, so bob seeing the event first means he never got the view.
	if msg := readMessage(t, bob); string(msg["type"]) != `"event"` {
		t.Errorf("bob: first message type = %s, want event", msg["type"])
	}
}
