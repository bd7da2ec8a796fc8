package livesync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"lifeassistant/globals"
	"lifeassistant/models"
)

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case got, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var f Frame
		if err := json.Unmarshal(got, &f); err != nil {
			t.Fatalf("bad frame %s: %v", got, err)
		}
		return f
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	return Frame{}
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	loaded := ""
	hub := NewHub(func(ctx context.Context) ([]models.Dish, []models.ScheduleSlot, error) {
		loaded = globals.UserID(ctx)
		return []models.Dish{{ID: "d1", Name: "Soup", Revision: 1}}, nil, nil
	})
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "u1",
	}
	if err := hub.Join(context.Background(), client); err != nil {
		t.Fatalf("join: %v", err)
	}
	if loaded != "u1" {
		t.Fatalf("loader ran for %q", loaded)
	}

	snap := receive(t, client)
	if snap.Type != "snapshot" || len(snap.Dishes) != 1 || snap.Dishes[0].Name != "Soup" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	ctx := context.Background()
	hub.Publish(ctx, models.ChangeEvent{UserID: "u2", Entity: models.EntityDish, Op: models.OpInsert, ID: "x", Revision: 9, Dish: &models.Dish{ID: "x"}})
	hub.Publish(ctx, models.ChangeEvent{UserID: "u1", Entity: models.EntityDish, Op: models.OpUpdate, ID: "d1", Revision: 1, Dish: &models.Dish{ID: "d1", Name: "stale"}})
	hub.Publish(ctx, models.ChangeEvent{UserID: "u1", Entity: models.EntityDish, Op: models.OpUpdate, ID: "d1", Revision: 2, Dish: &models.Dish{ID: "d1", Name: "Tomato soup"}})

	change := receive(t, client)
	if change.Type != "change" || change.Event == nil || change.Event.Revision != 2 {
		t.Fatalf("expected revision 2 change, got %+v", change)
	}

	hub.Leave(client)
	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("unexpected extra message")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("send channel not closed after leave")
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := &Client{Send: make(chan []byte, 1), Room: "u1"}
	if err := hub.Join(context.Background(), client); err != nil {
		t.Fatalf("join: %v", err)
	}
	hub.Stop()
	hub.Stop()

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("send channel not closed after stop")
	}

	// publishing after stop must not block
	hub.Publish(context.Background(), models.ChangeEvent{UserID: "u1"})
	hub.Leave(client)
}

func TestHubKeepsChangesArrivingDuringLoad(t *testing.T) {
	var hub *Hub
	hub = NewHub(func(ctx context.Context) ([]models.Dish, []models.ScheduleSlot, error) {
		// a write lands while the rows are being read
		hub.Publish(ctx, models.ChangeEvent{UserID: "u1", Entity: models.EntityDish, Op: models.OpUpdate, ID: "d1", Revision: 2, Dish: &models.Dish{ID: "d1", Name: "Tomato soup"}})
		deadline := time.Now().Add(time.Second)
		for len(hub.events) > 0 {
			if time.Now().After(deadline) {
				t.Error("change never picked up")
				break
			}
			time.Sleep(time.Millisecond)
		}
		return []models.Dish{{ID: "d1", Name: "Soup", Revision: 1}}, nil, nil
	})
	go hub.Run()
	defer hub.Stop()

	client := &Client{Send: make(chan []byte, 10), Room: "u1"}
	if err := hub.Join(context.Background(), client); err != nil {
		t.Fatalf("join: %v", err)
	}

	snap := receive(t, client)
	if snap.Type != "snapshot" || len(snap.Dishes) != 1 || snap.Dishes[0].Name != "Tomato soup" {
		t.Fatalf("snapshot lost the concurrent change: %+v", snap)
	}
}
