// Package livesync pushes every change of a user's dishes and schedule to that
// user's open websocket connections.
package livesync

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"lifeassistant/globals"
	"lifeassistant/mirror"
	"lifeassistant/models"

	"github.com/gorilla/websocket"
)

// Loader reads the current dishes and slots of the user in ctx.
type Loader func(ctx context.Context) ([]models.Dish, []models.ScheduleSlot, error)

// Client is one websocket connection. Room is the owning user id.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Room string

	mirror *mirror.Mirror
}

// Frame is what clients receive: one snapshot on join, then changes.
type Frame struct {
	Type     string                `json:"type"`
	Dishes   []models.Dish         `json:"dishes,omitempty"`
	Schedule []models.ScheduleSlot `json:"schedule,omitempty"`
	Event    *models.ChangeEvent   `json:"event,omitempty"`
}

type Hub struct {
	rooms      map[string]map[*Client]bool
	mirrors    map[string]*mirror.Mirror
	loading    map[string]chan struct{}
	register   chan *Client
	unregister chan *Client
	events     chan models.ChangeEvent
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
	load       Loader
}

func NewHub(load Loader) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		mirrors:    make(map[string]*mirror.Mirror),
		loading:    make(map[string]chan struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan models.ChangeEvent, 256),
		quit:       make(chan struct{}),
		load:       load,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for room, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			if h.mirrors[c.Room] == nil && c.mirror != nil {
				h.mirrors[c.Room] = c.mirror
			}
			if m := h.mirrors[c.Room]; m != nil {
				snap := Frame{Type: "snapshot", Dishes: m.Dishes(), Schedule: m.Slots()}
				if data, err := json.Marshal(snap); err == nil {
					c.Send <- data
				}
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case ev := <-h.events:
			h.mu.Lock()
			if m := h.mirrors[ev.UserID]; m != nil && !m.Apply(ev) {
				h.mu.Unlock()
				continue
			}
			data, err := json.Marshal(Frame{Type: "change", Event: &ev})
			if err != nil {
				h.mu.Unlock()
				log.Printf("[Sync] Failed to encode change %s/%s: %v", ev.Entity, ev.ID, err)
				continue
			}
			for c := range h.rooms[ev.UserID] {
				select {
				case c.Send <- data:
				default:
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c from its room and forgets the room's mirror once it is empty.
// Callers hold h.mu.
func (h *Hub) drop(c *Client) {
	conns := h.rooms[c.Room]
	if !conns[c] {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
		if _, busy := h.loading[c.Room]; !busy {
			delete(h.mirrors, c.Room)
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Publish queues ev for the owner's connections. It never blocks past ctx or Stop.
func (h *Hub) Publish(ctx context.Context, ev models.ChangeEvent) {
	select {
	case h.events <- ev:
	case <-h.quit:
	case <-ctx.Done():
		log.Printf("[Sync] Dropped change %s/%s for %s: %v", ev.Entity, ev.ID, ev.UserID, ctx.Err())
	}
}

// Join primes the room mirror of the client's user when needed and registers it.
func (h *Hub) Join(ctx context.Context, c *Client) error {
	m, err := h.prime(ctx, c.Room)
	if err != nil {
		return err
	}
	c.mirror = m
	select {
	case h.register <- c:
		return nil
	case <-h.quit:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave unregisters c; safe to call after Stop.
func (h *Hub) Leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// prime returns the room mirror of userID, loading it first when the room has
// none. The mirror is registered before the load so that changes arriving during
// it are applied; Load keeps whichever revision is newer.
func (h *Hub) prime(ctx context.Context, userID string) (*mirror.Mirror, error) {
	h.mu.Lock()
	m := h.mirrors[userID]
	wait, busy := h.loading[userID]
	if h.load == nil || (m != nil && !busy) {
		h.mu.Unlock()
		return m, nil
	}
	if busy {
		h.mu.Unlock()
		select {
		case <-wait:
			return h.prime(ctx, userID)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m = mirror.New()
	done := make(chan struct{})
	h.mirrors[userID] = m
	h.loading[userID] = done
	h.mu.Unlock()

	dishes, slots, err := h.load(globals.WithUser(ctx, userID))

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.loading, userID)
	close(done)
	if err != nil {
		if len(h.rooms[userID]) == 0 {
			delete(h.mirrors, userID)
		}
		return nil, err
	}
	m.Load(dishes, slots)
	return m, nil
}
