package websocket

import (
	"encoding/json"

	"github.com/isdelr/agora-be/internal/models"
	"github.com/rs/zerolog/log"
)

type reply struct {
	client  *Client
	message []byte
}

// GlobalKey subscribes a client to every activity event.
const GlobalKey = "global"

// Hub maintains the set of active clients and broadcasts activity to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Events waiting to be fanned out.
	events chan models.Event

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Direct replies to a single client.
	replies chan reply

	// A map of subscription keys (GlobalKey or a user ID) to their clients.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		events:        make(chan models.Event, 256),
		replies:       make(chan reply, 64),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.Key)
			log.Info().Int("total_clients", len(h.clients)).Str("key", client.Key).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case event := <-h.events:
			h.deliver(event)
		case rp := <-h.replies:
			if h.clients[rp.client] {
				select {
				case rp.client.Send <- rp.message:
				default:
					h.drop(rp.client)
				}
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Join registers a client. It reports false when the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters a client. It is a no-op once the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Reply queues a message for a single client. Replies to clients that have
// already left are discarded.
func (h *Hub) Reply(client *Client, message []byte) {
	select {
	case h.replies <- reply{client: client, message: message}:
	case <-h.done:
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for delivery. It never blocks; when the queue is
// full the event is dropped from the live stream (it is still in the store).
func (h *Hub) Publish(event models.Event) {
	select {
	case h.events <- event:
	default:
		log.Warn().Str("event_id", event.ID).Str("event_type", event.Type).Msg("Activity queue full, dropping live event")
	}
}

// deliver sends the event to global subscribers and to the subscribers of
// its actor and target.
func (h *Hub) deliver(event models.Event) {
	message, err := json.Marshal(NewActivityMessage(event))
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to encode activity message")
		return
	}

	sent := make(map[*Client]bool)
	for _, key := range []string{GlobalKey, event.ActorID, event.TargetID} {
		if key == "" {
			continue
		}
		for client := range h.subscriptions[key] {
			if sent[client] {
				continue
			}
			sent[client] = true
			select {
			case client.Send <- message:
			default:
				// Slow consumer.
				h.drop(client)
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, key string) {
	if h.subscriptions[key] == nil {
		h.subscriptions[key] = make(map[*Client]bool)
	}
	h.subscriptions[key][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for key, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, key)
			}
		}
	}
}
