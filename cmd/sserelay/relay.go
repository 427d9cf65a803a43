package main

import (
	"encoding/json"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// envelope is the message payload published to JetStream, one message per
// received SSE event.
type envelope struct {
	Relay      string    `json:"relay"`
	ID         string    `json:"id,omitempty"`
	Event      string    `json:"event"`
	Data       string    `json:"data"`
	ReceivedAt time.Time `json:"received_at"`
}

// relay publishes received SSE events to JetStream subjects derived from the
// event type.
type relay struct {
	id      string
	js      nats.JetStreamContext
	subject string
	log     logrus.FieldLogger
}

// forward handles a single SSE event. Publish failures are logged and the
// event is dropped, stream consumption continues.
func (r *relay) forward(id, event, data string) {
	payload, err := json.Marshal(envelope{
		Relay:      r.id,
		ID:         id,
		Event:      event,
		Data:       data,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		r.log.WithError(err).Error("event encoding failed")
		return
	}
	if _, err := r.js.Publish(subjectFor(r.subject, event), payload); err != nil {
		r.log.WithError(err).WithField("event", event).Warn("event publish failed")
	}
}

// subjectReplacer rewrites characters that have a special meaning in NATS
// subjects.
var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// subjectFor builds a JetStream subject for an event type.
func subjectFor(prefix, event string) string {
	return prefix + "." + subjectReplacer.Replace(event)
}

// ensureStream creates the JetStream stream if it does not exist yet.
func ensureStream(js nats.JetStreamContext, name, prefix string) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{prefix + ".>"},
		Storage:  nats.FileStorage,
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}
