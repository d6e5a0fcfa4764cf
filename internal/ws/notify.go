package ws

import (
	"encoding/json"
	"time"

	"jobtracker/internal/delivery/http/dto"
	"jobtracker/internal/domain/user"
	"jobtracker/internal/listsync"
)

const (
	EventSnapshot = "snapshot"
	EventNotice   = "notice"
)

type SnapshotEvent struct {
	Type      string                      `json:"type"`
	Snapshot  dto.JobListSnapshotResponse `json:"snapshot"`
	Timestamp string                      `json:"timestamp"`
}

type NoticeEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func EncodeSnapshot(s listsync.Snapshot) ([]byte, error) {
	return json.Marshal(SnapshotEvent{Type: EventSnapshot, Snapshot: dto.FromSnapshot(s), Timestamp: now()})
}

func EncodeNotice(msg string) ([]byte, error) {
	return json.Marshal(NoticeEvent{Type: EventNotice, Message: msg, Timestamp: now()})
}

// Notifier forwards workspace updates to the hub. Its Notify method has
// the shape of a workspace observer.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) Notify(topic string, _ user.Principal, u listsync.Update) {
	if n == nil || n.hub == nil {
		return
	}
	if b, err := EncodeSnapshot(u.Snapshot); err == nil {
		n.hub.Broadcast(topic, b)
	}
	if u.Notice == "" {
		return
	}
	if b, err := EncodeNotice(u.Notice); err == nil {
		n.hub.Broadcast(topic, b)
	}
}
