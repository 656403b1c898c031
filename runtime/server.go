package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"kataribe/contract"
	"kataribe/envelope"
	"kataribe/pending"
	"kataribe/transport"
)

// Server is the server-side runtime. A single Server is shared contract and
// handler configuration across every Connection it accepts; each accepted
// transport gets its own Connection with its own pending-call table for
// server-initiated (rpcToClient) calls.
//
// Grounded on mini-rpc's server.Server, which held a set of active
// *ServerConn and closed them all on shutdown; the connection set and
// iterate-and-close-all shutdown shape are kept, generalized to the
// contract-driven dispatch this package adds.
type Server struct {
	contract *contract.Contract
	opts     ServerOptions

	mu     sync.Mutex
	closed bool
	conns  map[*Connection]struct{}
}

// NewServer constructs a Server from its contract and options. Accept must
// be called once per incoming transport to start dispatching on it.
func NewServer(c *contract.Contract, opts ServerOptions) *Server {
	opts.CommonOptions = opts.CommonOptions.withDefaults()
	if opts.Handlers == nil {
		opts.Handlers = map[string]Handler{}
	}
	if opts.EventHandlers == nil {
		opts.EventHandlers = map[string]func(json.RawMessage){}
	}
	return &Server{
		contract: c,
		opts:     opts,
		conns:    make(map[*Connection]struct{}),
	}
}

// Accept wraps t as a Connection, sends its hello envelope, and begins
// dispatching inbound frames from it. If the server has already been
// closed, the transport is closed immediately and the returned Connection
// is already closed.
func (s *Server) Accept(t transport.Transport) *Connection {
	conn := &Connection{
		server:    s,
		transport: t,
		pending:   pending.New(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return conn
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	conn.dispose = t.OnMessage(conn.handleMessage)
	conn.sendHello()
	return conn
}

func (s *Server) removeConnection(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Close closes every open connection (spec §4.5.5). Individual connection
// close is idempotent, so a connection that closed itself concurrently is
// simply a no-op here.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*Connection]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return nil
}

// Connection is a server-side handle on one accepted transport: its own
// pending-call table for rpcToClient calls this server initiates, plus
// close.
type Connection struct {
	server    *Server
	transport transport.Transport
	pending   *pending.Table
	dispose   func()

	mu     sync.Mutex
	closed bool
}

func (conn *Connection) sendHello() {
	env := envelope.New(envelope.KindHello, conn.server.opts.Version)
	env.Feat = conn.server.opts.Features
	if err := sendEnvelope(context.Background(), conn.transport, conn.server.opts.Codec, conn.server.opts.Middlewares, env); err != nil {
		conn.server.opts.Logger.Error("runtime: failed to send hello", "err", err)
	}
}

func (conn *Connection) handleMessage(data []byte) {
	s := conn.server
	handleInboundData(context.Background(), data, s.opts.Codec, inboundDeps{
		Version:          s.opts.Version,
		Middlewares:      s.opts.Middlewares,
		Pending:          conn.pending,
		RPCDescriptors:   s.contract.RPCToServer,
		RPCHandlers:      s.opts.Handlers,
		EventDescriptors: s.contract.Events,
		Subscribers: func(ch string) []func(json.RawMessage) {
			if h, ok := s.opts.EventHandlers[ch]; ok {
				return []func(json.RawMessage){h}
			}
			return nil
		},
		Logger:            s.opts.Logger,
		OnUnknownEnvelope: s.opts.OnUnknownEnvelope,
		OnHello:           s.opts.OnHello,
		Send: func(env *envelope.Envelope) error {
			return sendEnvelope(context.Background(), conn.transport, s.opts.Codec, s.opts.Middlewares, env)
		},
	})
}

func (conn *Connection) call(ctx context.Context, method string, reqPayload json.RawMessage) (json.RawMessage, error) {
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	s := conn.server
	return callRPC(ctx, conn.transport, s.opts.Codec, s.opts.Middlewares, s.opts.Version,
		conn.pending, s.opts.GenerateID, s.opts.Timeout, s.contract.RPCToClient, method, reqPayload)
}

// IsOpen reports whether the underlying transport still accepts sends.
func (conn *Connection) IsOpen() bool {
	return conn.transport.IsOpen()
}

// Close closes the connection's transport, rejects its outstanding
// rpcToClient calls with a shutdown error, and removes it from the server's
// connection set. Calling Close more than once is a no-op.
func (conn *Connection) Close() error {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return nil
	}
	conn.closed = true
	conn.mu.Unlock()

	if conn.dispose != nil {
		conn.dispose()
	}
	err := conn.transport.Close(1000, "server closing connection")
	conn.pending.AbandonAll(fmt.Errorf("runtime: connection closed"))
	conn.server.removeConnection(conn)
	return err
}

// CallClient invokes the rpcToClient method named method on the connection's
// peer, blocking until the client's response arrives, the call times out,
// or the connection closes.
func CallClient[Req, Res any](ctx context.Context, conn *Connection, method string, req Req) (Res, error) {
	var zero Res

	reqBytes, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("runtime: marshal request: %w", err)
	}

	raw, err := conn.call(ctx, method, reqBytes)
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
