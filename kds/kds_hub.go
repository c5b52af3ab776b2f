// Package kds pushes change notifications to the POS UI over websockets.
package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-sync/state"
	"github.com/yeremiapane/pos-sync/utils"
)

// Event types
const (
	EventCategories = string(state.EventCategories)
	EventMenuItems  = string(state.EventMenuItems)
	EventOrders     = string(state.EventOrders)
	EventBrand      = string(state.EventBrand)
	EventCart       = string(state.EventCart)
	EventReset      = string(state.EventReset)
	EventStatus     = "status"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// KDSHub holds the connected UI clients keyed by the user they signed in as.
type KDSHub struct {
	clients  map[*websocket.Conn]string
	audience func() string
	mutex    sync.Mutex
}

func NewHub() *KDSHub {
	return &KDSHub{clients: make(map[*websocket.Conn]string)}
}

// SetAudience limits broadcasts to clients signed in as the user fn
// returns. Clients of any other user are dropped on the next broadcast.
func (h *KDSHub) SetAudience(fn func() string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.audience = fn
}

func (h *KDSHub) RegisterClient(conn *websocket.Conn, userID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = userID
}

func (h *KDSHub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *KDSHub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// BroadcastStatus publishes a sync status change.
func (h *KDSHub) BroadcastStatus(status interface{}) {
	h.Broadcast(Message{Event: EventStatus, Data: status})
}

// Broadcast writes msg to every client. Clients that fail a write are
// dropped.
func (h *KDSHub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	audience := h.audience
	h.mutex.Unlock()
	want := ""
	if audience != nil {
		want = audience()
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, userID := range h.clients {
		if audience != nil && userID != want {
			utils.InfoLogger.WithField("user", userID).Info("Closing feed client of a previous session")
			delete(h.clients, conn)
			conn.Close()
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.InfoLogger.WithFields(logrus.Fields{
				"user":  userID,
				"event": msg.Event,
			}).Warnf("Dropping client after failed write: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Pump forwards store events until the channel closes or stop fires. Each
// message carries the changed collection so clients need not re-fetch.
func (h *KDSHub) Pump(store *state.Store, events <-chan state.Event, stop <-chan struct{}) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(Message{Event: string(ev.Kind), Data: payload(store, ev.Kind)})
		case <-stop:
			return
		}
	}
}

func payload(store *state.Store, kind state.EventKind) interface{} {
	switch kind {
	case state.EventCategories:
		return store.Categories()
	case state.EventMenuItems:
		return store.MenuItems()
	case state.EventOrders:
		return store.Orders()
	case state.EventBrand:
		return store.Brand()
	case state.EventCart:
		return store.Cart()
	default:
		return nil
	}
}
