// Package eventbus carries notification lifecycle events from the
// dispatcher to interested subscribers, currently the websocket event
// stream. Delivery is asynchronous through a bounded worker pool so a
// slow subscriber never stalls a notification request.
package eventbus

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// Topics published on the bus.
const (
	// TopicNotificationDispatched fires after every /notify request,
	// successful or not, with a NotificationEvent argument.
	TopicNotificationDispatched = "notify:dispatched"
)

// NotificationEvent is the payload published for each handled
// notification request.
type NotificationEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Client    string         `json:"client,omitempty"`
	Message   string         `json:"message,omitempty"`
	Sound     bool           `json:"sound"`
	Speak     bool           `json:"speak"`
	Success   bool           `json:"success"`
	Actions   []ActionRecord `json:"actions,omitempty"`
}

// ActionRecord mirrors one dispatcher action outcome.
type ActionRecord struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// Bus wraps an EventBus with a worker pool for asynchronous publishing.
type Bus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// New builds a bus with the given worker count. Callers must Start it
// before publishing asynchronously and Stop it on shutdown.
func New(workerNum int) *Bus {
	if workerNum <= 0 {
		workerNum = 4
	}
	return &Bus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, 1000),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the worker pool.
func (b *Bus) Start() {
	for i := 0; i < b.workerNum; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

// Stop drains the workers and waits for them to exit.
func (b *Bus) Stop() {
	close(b.stopChan)
	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			return
		case event := <-b.workChan:
			func() {
				defer func() {
					// A panicking subscriber must not take the
					// worker down with it.
					_ = recover()
				}()
				b.bus.Publish(event.topic, event.args...)
			}()
		}
	}
}

// Publish delivers the event synchronously to all subscribers.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

// PublishAsync hands the event to the worker pool. When the queue is
// full the event is dropped rather than blocking the publisher.
func (b *Bus) PublishAsync(topic string, args ...interface{}) {
	select {
	case b.workChan <- asyncEvent{topic: topic, args: args}:
	default:
	}
}

// Subscribe registers fn for the topic.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// HasCallback reports whether the topic has any subscriber.
func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}
