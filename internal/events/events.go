// Package events decodes triggering messages into workflow requests and fans run outcomes
// out to in-process subscribers.
package events

import (
	"context"
	"sync"

	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// EventType represents the outcome of a workflow run
type EventType string

const (
	// EventRunSucceeded is emitted when a run promoted and/or cleaned up
	EventRunSucceeded EventType = "run_succeeded"
	// EventRunSkipped is emitted when a run was gated before touching any resource
	EventRunSkipped EventType = "run_skipped"
	// EventRunFailed is emitted when a run returned an error
	EventRunFailed EventType = "run_failed"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents a finished workflow run
type Event struct {
	Type    EventType        // The type of event
	RunID   string           // The run ID
	Source  string           // The trigger the request arrived on
	Request workflow.Request // The decoded request
	Result  *workflow.Result // The result, nil on failure
	Err     error            // The failure, nil otherwise
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

var (
	// handlers is a map of event types to their handlers
	handlers = make(map[EventType][]Handler)
	// handlersMu is a mutex for the handlers map
	handlersMu sync.RWMutex
	// eventChan is a channel for events
	eventChan = make(chan Event, EventChannelSize)
)

// Subscribe registers a handler for a specific event type
func Subscribe(eventType EventType, handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[eventType] = append(handlers[eventType], handler)
	logger.Debugf("Registered handler for event type: %s", eventType)
}

// Publish queues an event for processing. Events are dropped when the queue is full so a
// slow subscriber never blocks a run.
func Publish(event Event) {
	select {
	case eventChan <- event:
		logger.Debugf("Published event: %s (run: %s)", event.Type, event.RunID)
	default:
		logger.Warnf("Event queue full, dropping %s for run %s", event.Type, event.RunID)
	}
}

// Start starts the event processing loop
func Start(ctx context.Context) {
	go processEvents(ctx)
	logger.Info("Started event processing loop")
}

// processEvents handles events in the background
func processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping event processing loop")
			return
		case event := <-eventChan:
			handlersMu.RLock()
			eventHandlers := handlers[event.Type]
			handlersMu.RUnlock()

			for _, handler := range eventHandlers {
				go func(h Handler, e Event) {
					if err := h(ctx, e); err != nil {
						logger.Errorf("Failed to handle event %s for run %s: %v", e.Type, e.RunID, err)
					}
				}(handler, event)
			}
		}
	}
}
