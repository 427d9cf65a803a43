package sseclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State describes the connection state of a Client.
type State int

const (
	// Closed means client is not connected. It is the state of a freshly
	// created client, after a call to Close and between reconnect
	// attempts.
	Closed State = iota

	// Connecting means the stream request was issued and client is
	// waiting for the first bytes of the response.
	Connecting

	// Open means the event stream is being received.
	Open
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Config holds Client configuration. Zero value is usable, unset fields are
// replaced with defaults on client creation.
type Config struct {
	// Headers are additional HTTP request headers sent with every connect
	// attempt, typically used for authorization. Protocol headers Accept,
	// Cache-Control and Last-Event-Id are managed by the client and can
	// not be overridden.
	Headers map[string]string

	// Retry is the interval between a stream failure and the following
	// reconnect attempt. It is a starting value, server can adjust it at
	// any time with the retry field.
	Retry time.Duration

	// Store keeps last seen event IDs between connects. If Store is nil a
	// new MemoryStore is used, stream is resumed over reconnects but not
	// over application restarts.
	Store Store

	// Client performs stream HTTP requests. If Client is nil a dedicated
	// client with no timeout is used. Clients with a global Timeout set
	// should not be passed here, the timeout would kill a healthy stream.
	Client *http.Client

	// Logger is used for client lifecycle logging. If Logger is nil the
	// logrus standard logger is used.
	Logger logrus.FieldLogger
}

// DefaultConfig is a recommended client configuration.
var DefaultConfig = Config{
	Retry: 3 * time.Second,
}

// Size of a single response body read.
const readBufferSize = 32 * 1024

// Client is a SSE stream consumer. Single client instance maintains at most
// one connection to the stream address it was created with. All exported
// methods are safe for concurrent use, callbacks can be registered at any
// time including from inside other callbacks.
type Client struct {
	url     string
	session string
	headers map[string]string
	store   Store
	httpc   *http.Client
	log     logrus.FieldLogger

	dispatch *dispatcher

	mu      sync.Mutex
	state   State
	closing bool
	gen     uint64
	cancel  context.CancelFunc
	timer   *time.Timer
	retry   time.Duration
	lastID  string
}

// New creates a client for the SSE stream at the given address. Client is
// created in the closed state, call Connect to start receiving events.
func New(address string, cfg Config) *Client {
	if cfg.Retry <= 0 {
		cfg.Retry = DefaultConfig.Retry
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	c := &Client{
		url:      address,
		session:  sessionKey(address),
		headers:  cfg.Headers,
		store:    cfg.Store,
		httpc:    cfg.Client,
		log:      cfg.Logger.WithField("url", address),
		dispatch: newDispatcher(),
		retry:    cfg.Retry,
	}
	if id, err := cfg.Store.Get(c.session); err == nil {
		c.lastID = id
	}
	return c
}

// Connect starts the event stream. The call does not block, stream is read
// and callbacks are dispatched on background goroutines. A failed stream is
// reconnected automatically after RetryTime. Connect on an already connected
// client is a no-op, Connect after Close starts the stream again.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = false
	c.startLocked()
}

// Close stops the client. It cancels the in-flight stream request and
// prevents all scheduled reconnects. Close is idempotent and is safe to call
// from event callbacks.
func (c *Client) Close() {
	c.mu.Lock()
	c.closing = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	cancel := c.cancel
	c.cancel = nil
	c.state = Closed
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// OnOpen sets the callback invoked every time the stream becomes open. Only
// one open callback can be active, repeated calls replace it.
func (c *Client) OnOpen(h func()) {
	c.dispatch.setOpen(h)
}

// OnError sets the callback invoked on stream failures. Only one error
// callback can be active, repeated calls replace it. A failure that happened
// before the callback was set is not lost, the latest unreported one is
// delivered to the new callback immediately.
func (c *Client) OnError(h func(error)) {
	c.dispatch.setError(h)
}

// OnMessage sets the callback for events received without an explicit type.
// Such events are delivered with the type "message". Only one message
// callback can be active, repeated calls replace it.
func (c *Client) OnMessage(h EventHandler) {
	c.dispatch.setMessage(h)
}

// AddEventListener registers a callback for events with the given type.
// Events whose type has no registered listener are dropped, they are not
// delivered to the OnMessage callback.
func (c *Client) AddEventListener(event string, h EventHandler) {
	c.dispatch.addListener(event, h)
}

// RemoveEventListener removes a previously registered event type listener.
func (c *Client) RemoveEventListener(event string) {
	c.dispatch.removeListener(event)
}

// Events returns types of all currently registered event listeners in no
// particular order.
func (c *Client) Events() []string {
	return c.dispatch.eventTypes()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RetryTime returns the current reconnect interval. It starts as
// Config.Retry and is adjusted by server sent retry fields.
func (c *Client) RetryTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retry
}

// LastEventID returns ID of the last seen event or an empty string if no
// event with an ID was seen yet.
func (c *Client) LastEventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID
}

// URL returns the stream address the client was created with.
func (c *Client) URL() string {
	return c.url
}

// startLocked begins a single connect attempt. Caller must hold c.mu.
func (c *Client) startLocked() {
	if c.state != Closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = Connecting
	c.gen++

	go c.run(ctx, c.gen)
}

// run performs one connect attempt and consumes its response stream. On
// stream end it reports the failure and schedules a reconnect if allowed.
func (c *Client) run(ctx context.Context, gen uint64) {
	resp, err := c.open(ctx)
	if err != nil {
		c.terminated(gen, 0, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		c.terminated(gen, resp.StatusCode, nil)
		return
	}

	var split splitter
	buf := make([]byte, readBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 && c.markOpen(gen) {
			for _, block := range split.feed(buf[:n]) {
				c.handleBlock(block)
			}
		}
		if err != nil {
			c.terminated(gen, resp.StatusCode, err)
			return
		}
	}
}

// open issues the streaming GET request with protocol and user headers set.
func (c *Client) open(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if id, err := c.store.Get(c.session); err != nil {
		c.log.WithError(err).Warn("last event ID lookup failed")
	} else if id != "" {
		req.Header.Set("Last-Event-Id", id)
	}

	return c.httpc.Do(req)
}

// markOpen switches the attempt into the open state on its first read. It
// reports false if the attempt is stale or the client was closed, data
// received in these states is discarded unparsed.
func (c *Client) markOpen(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || c.state == Closed {
		c.mu.Unlock()
		return false
	}
	if c.state == Open {
		c.mu.Unlock()
		return true
	}
	c.state = Open
	c.mu.Unlock()

	c.log.Debug("stream opened")
	c.dispatch.open()
	return true
}

// handleBlock parses a single event block and dispatches its payload.
func (c *Client) handleBlock(block []byte) {
	f, retry, ok := parseBlock(block)
	if ok {
		c.mu.Lock()
		c.retry = retry
		c.mu.Unlock()
		c.log.WithField("retry", retry).Debug("retry interval updated")
		return
	}
	if f == nil {
		return
	}

	if id, found := f["id"]; found {
		c.mu.Lock()
		c.lastID = id
		c.mu.Unlock()
		if err := c.store.Set(c.session, id); err != nil {
			c.log.WithError(err).Warn("last event ID save failed")
		}
	}

	data, found := f["data"]
	if !found {
		return
	}

	c.mu.Lock()
	id := c.lastID
	c.mu.Unlock()

	if event, found := f["event"]; found {
		c.dispatch.typed(id, event, data)
	} else {
		c.dispatch.generic(id, data)
	}
}

// terminated finishes an attempt, reports its failure and schedules a
// reconnect unless the stream ended on purpose.
func (c *Client) terminated(gen uint64, status int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		// a newer attempt owns the client state
		c.mu.Unlock()
		return
	}
	c.state = Closed
	c.cancel = nil
	closing := c.closing
	retry := c.retry
	c.mu.Unlock()

	switch {
	case closing || errors.Is(err, context.Canceled):
		// locally canceled stream is not a failure and is not resumed
		c.log.Debug("stream closed")
		return
	case status == http.StatusNoContent:
		// 204 is a server request to stop reconnecting
		c.log.Debug("stream ended, server asked not to reconnect")
		return
	}

	if err != nil && !errors.Is(err, io.EOF) {
		c.log.WithError(err).Debug("stream failed")
		c.dispatch.failed(err)
	} else {
		c.log.Debug("stream ended")
	}

	c.mu.Lock()
	if !c.closing && c.state == Closed && c.timer == nil {
		c.log.WithField("retry", retry).Debug("reconnect scheduled")
		c.timer = time.AfterFunc(retry, c.reconnect)
	}
	c.mu.Unlock()
}

// reconnect runs on the retry timer. It starts the next attempt if the
// client was not closed while the timer was pending.
func (c *Client) reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer = nil
	if c.closing {
		return
	}
	c.startLocked()
}

// sessionKey derives a persistence key from the stream address. Only scheme,
// host, port and path identify the session, query and fragment are dropped.
// Default port is made explicit so that equal addresses with and without it
// share the resume position.
func sessionKey(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return address
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return u.Scheme + "://" + u.Hostname() + ":" + port + u.Path
}
