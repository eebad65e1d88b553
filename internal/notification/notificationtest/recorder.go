// Package notificationtest provides an in-memory Notifier for tests.
package notificationtest

import (
	"context"
	"sync"

	"github.com/smallbiznis/domainledger/internal/notification"
)

type Sent struct {
	UserID string
	Title  string
	Body   string
	Level  notification.Level
}

// Recorder keeps every notice that has an audience.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Notify(_ context.Context, userID, title, body string, level notification.Level) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Title: title, Body: body, Level: level})
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Last returns the most recent notice, or the zero value.
func (r *Recorder) Last() Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}
	}
	return r.sent[len(r.sent)-1]
}
