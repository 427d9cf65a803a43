package sseclient

import "sync"

// EventHandler is a callback invoked for received stream events. First
// argument is the current last seen event ID, it is not necessarily carried
// by the delivered event because servers send the id field only when it
// changes. Remaining arguments are the event type and the data payload.
type EventHandler func(id string, event string, data string)

// dispatcher owns all callbacks registered on a client and the queue used to
// invoke them. Callbacks run one at a time in the order events were parsed,
// slow user code never blocks the stream read loop.
type dispatcher struct {
	mu        sync.Mutex
	onOpen    func()
	onError   func(error)
	onMessage EventHandler
	listeners map[string]EventHandler
	failure   error

	queue callbackQueue
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		listeners: make(map[string]EventHandler),
	}
}

func (d *dispatcher) setOpen(h func()) {
	d.mu.Lock()
	d.onOpen = h
	d.mu.Unlock()
}

// setError replaces the error callback. If a failure was recorded while no
// callback was set it is delivered to the new callback immediately.
func (d *dispatcher) setError(h func(error)) {
	d.mu.Lock()
	d.onError = h
	var err error
	if h != nil {
		err, d.failure = d.failure, nil
	}
	d.mu.Unlock()

	if err != nil {
		d.queue.post(func() { h(err) })
	}
}

func (d *dispatcher) setMessage(h EventHandler) {
	d.mu.Lock()
	d.onMessage = h
	d.mu.Unlock()
}

func (d *dispatcher) addListener(event string, h EventHandler) {
	d.mu.Lock()
	d.listeners[event] = h
	d.mu.Unlock()
}

func (d *dispatcher) removeListener(event string) {
	d.mu.Lock()
	delete(d.listeners, event)
	d.mu.Unlock()
}

// eventTypes returns types of all registered listeners in no particular
// order.
func (d *dispatcher) eventTypes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	types := make([]string, 0, len(d.listeners))
	for event := range d.listeners {
		types = append(types, event)
	}
	return types
}

// open queues an open callback invocation.
func (d *dispatcher) open() {
	d.mu.Lock()
	h := d.onOpen
	d.mu.Unlock()

	if h != nil {
		d.queue.post(h)
	}
}

// failed queues an error callback invocation. With no callback registered
// the error is kept for delivery on registration, only the latest
// unreported error is kept.
func (d *dispatcher) failed(err error) {
	d.mu.Lock()
	h := d.onError
	if h == nil {
		d.failure = err
	}
	d.mu.Unlock()

	if h != nil {
		d.queue.post(func() { h(err) })
	}
}

// generic queues delivery of an event received without a type. It goes to
// the OnMessage callback with the type set to "message".
func (d *dispatcher) generic(id, data string) {
	d.mu.Lock()
	h := d.onMessage
	d.mu.Unlock()

	if h != nil {
		d.queue.post(func() { h(id, "message", data) })
	}
}

// typed queues delivery of an event with an explicit type to the listener
// registered for it. Event types with no listener are dropped, they are not
// redirected to the OnMessage callback.
func (d *dispatcher) typed(id, event, data string) {
	d.mu.Lock()
	h := d.listeners[event]
	d.mu.Unlock()

	if h != nil {
		d.queue.post(func() { h(id, event, data) })
	}
}

// callbackQueue runs queued callbacks in FIFO order. Queue is unbounded and
// post never blocks. Callbacks are executed by a single drainer goroutine
// which is started lazily on post and exits once the queue is emptied.
type callbackQueue struct {
	mu      sync.Mutex
	pending []func()
	active  bool
}

func (q *callbackQueue) post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	if q.active {
		q.mu.Unlock()
		return
	}
	q.active = true
	q.mu.Unlock()

	go q.drain()
}

func (q *callbackQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}
