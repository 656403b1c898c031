package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"kataribe/contract"
	"kataribe/envelope"
	"kataribe/pending"
	"kataribe/transport"
)

// Client is the client-side runtime: it calls the server's rpcToServer
// methods, exposes its own rpcToClient methods for the server to call back,
// emits and subscribes to events, and owns one pending-call table for its
// own outbound calls.
//
// Grounded on mini-rpc's client.Client, which owned one ClientTransport and
// dispatched by message type rather than by contract-driven envelope kind.
type Client struct {
	transport transport.Transport
	contract  *contract.Contract
	opts      ClientOptions

	pending *pending.Table
	dispose func()

	mu     sync.Mutex
	closed bool

	subMu     sync.Mutex
	subs      map[string]map[int]func(json.RawMessage)
	nextSubID int
}

// NewClient constructs a Client over t, immediately sending a hello envelope
// (spec §4.5.1) and wiring inbound dispatch to t.OnMessage.
func NewClient(t transport.Transport, c *contract.Contract, opts ClientOptions) *Client {
	opts.CommonOptions = opts.CommonOptions.withDefaults()
	if opts.Handlers == nil {
		opts.Handlers = map[string]Handler{}
	}

	cl := &Client{
		transport: t,
		contract:  c,
		opts:      opts,
		pending:   pending.New(),
		subs:      make(map[string]map[int]func(json.RawMessage)),
	}
	cl.dispose = t.OnMessage(cl.handleMessage)
	cl.sendHello()
	return cl
}

func (c *Client) sendHello() {
	env := envelope.New(envelope.KindHello, c.opts.Version)
	env.Feat = c.opts.Features
	if err := sendEnvelope(context.Background(), c.transport, c.opts.Codec, c.opts.Middlewares, env); err != nil {
		c.opts.Logger.Error("runtime: failed to send hello", "err", err)
	}
}

func (c *Client) handleMessage(data []byte) {
	handleInboundData(context.Background(), data, c.opts.Codec, inboundDeps{
		Version:           c.opts.Version,
		Middlewares:       c.opts.Middlewares,
		Pending:           c.pending,
		RPCDescriptors:    c.contract.RPCToClient,
		RPCHandlers:       c.opts.Handlers,
		EventDescriptors:  c.contract.Events,
		Subscribers:       c.subscribers,
		Logger:            c.opts.Logger,
		OnUnknownEnvelope: c.opts.OnUnknownEnvelope,
		OnHello:           c.opts.OnHello,
		Send: func(env *envelope.Envelope) error {
			return sendEnvelope(context.Background(), c.transport, c.opts.Codec, c.opts.Middlewares, env)
		},
	})
}

// call is the untyped core of Call, registering against the contract's
// rpcToServer map.
func (c *Client) call(ctx context.Context, method string, reqPayload json.RawMessage) (json.RawMessage, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return callRPC(ctx, c.transport, c.opts.Codec, c.opts.Middlewares, c.opts.Version,
		c.pending, c.opts.GenerateID, c.opts.Timeout, c.contract.RPCToServer, method, reqPayload)
}

func (c *Client) subscribeRaw(ch string, fn func(json.RawMessage)) func() {
	c.subMu.Lock()
	if c.subs[ch] == nil {
		c.subs[ch] = make(map[int]func(json.RawMessage))
	}
	id := c.nextSubID
	c.nextSubID++
	c.subs[ch][id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs[ch], id)
			c.subMu.Unlock()
		})
	}
}

// subscribers returns ch's subscribers ordered by registration, so
// dispatchEvent invokes them in the order spec §4.5.4 requires.
func (c *Client) subscribers(ch string) []func(json.RawMessage) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	m := c.subs[ch]
	if len(m) == 0 {
		return nil
	}
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(json.RawMessage), 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Close closes the transport, rejects every outstanding call with a
// shutdown error, and empties the pending table (spec §4.5.5).
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.dispose != nil {
		c.dispose()
	}
	err := c.transport.Close(1000, "client closing")
	c.pending.AbandonAll(fmt.Errorf("runtime: client closed"))
	return err
}

// Call invokes the rpcToServer method named method with typed request req,
// blocking until the server's response arrives, the call times out, or the
// client closes.
func Call[Req, Res any](ctx context.Context, c *Client, method string, req Req) (Res, error) {
	var zero Res

	reqBytes, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("runtime: marshal request: %w", err)
	}

	raw, err := c.call(ctx, method, reqBytes)
	if err != nil {
		return zero, err
	}

	var res Res
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &res); err != nil {
			return zero, fmt.Errorf("runtime: unmarshal response: %w", err)
		}
	}
	return res, nil
}

// Emit sends payload on event channel ch, fire-and-forget: it returns
// immediately and the validate/middleware/send flow runs asynchronously;
// any failure is logged, never surfaced here (spec §4.5.2).
func Emit[T any](c *Client, ch string, payload T) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.opts.Logger.Error("runtime: marshal event payload failed", "ch", ch, "err", err)
		return
	}
	go emitEvent(context.Background(), c.transport, c.opts.Codec, c.opts.Middlewares, c.opts.Version, c.opts.Logger, c.contract.Events, ch, raw)
}

// Subscribe registers handler against event channel ch and returns a
// disposer that removes it. Multiple subscribers per channel are invoked
// serially, in registration order (spec §4.5.4).
func Subscribe[T any](c *Client, ch string, handler func(T)) func() {
	return c.subscribeRaw(ch, EventHandlerFunc(c.opts.Logger, ch, handler))
}
