package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// DefaultHeartbeat keeps idle event streams from being reaped by proxies
// and lets the server notice gone clients.
const DefaultHeartbeat = 15 * time.Second

// Event names, in the order the store notifies them.
const (
	EventBookmarks = "bookmarks"
	EventGroups    = "groups"
	EventRelations = "relations"
)

var eventOrder = [...]string{EventBookmarks, EventGroups, EventRelations}

// eventQueue coalesces notifications per collection. Store listeners run
// synchronously inside mutations, so push never blocks.
type eventQueue struct {
	mu      sync.Mutex
	pending [len(eventOrder)]bool
	wake    chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(i int) {
	q.mu.Lock()
	q.pending[i] = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain returns the pending event names in notification order.
func (q *eventQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for i, hit := range q.pending {
		if hit {
			out = append(out, eventOrder[i])
			q.pending[i] = false
		}
	}
	return out
}

// Events streams change notifications as server-sent events. Each event
// names the collection that changed; clients re-read it.
func Events(d deps.Deps) http.HandlerFunc {
	heartbeat := d.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// The server-wide write timeout would cut the stream.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			d.Logger.Debug("cannot clear write deadline", logger.Error(err))
		}

		q := newEventQueue()
		unsubs := []func(){
			d.MemoryIndex.SubscribeBookmarks(func() { q.push(0) }),
			d.MemoryIndex.SubscribeGroups(func() { q.push(1) }),
			d.MemoryIndex.SubscribeRelations(func() { q.push(2) }),
		}
		defer func() {
			for _, u := range unsubs {
				u()
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if _, err := fmt.Fprint(w, "retry: 2000\nevent: ready\ndata: {}\n\n"); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			d.Logger.Warn("event stream cannot flush", logger.Error(err))
			return
		}
		d.Logger.Debug("event stream opened", logger.String("remote_ip", r.RemoteAddr))

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				d.Logger.Debug("event stream closed", logger.String("remote_ip", r.RemoteAddr))
				return
			case <-d.Shutdown:
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case <-q.wake:
				for _, name := range q.drain() {
					if _, err := fmt.Fprintf(w, "event: %s\ndata: {\"collection\":%q}\n\n", name, name); err != nil {
						return
					}
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
