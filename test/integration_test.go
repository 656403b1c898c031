// Package test holds the end-to-end scenarios seeded straight from spec §8,
// wired over transport/looptransport so they need no socket or etcd — the
// same shape as mini-rpc's test/integration_test.go's full-stack Arith
// service, but exercising envelope/contract/middleware dispatch instead of
// net/rpc-style reflection.
package test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kataribe/contract"
	"kataribe/envelope"
	"kataribe/logging"
	"kataribe/middleware"
	"kataribe/runtime"
	"kataribe/transport/looptransport"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addReply struct {
	Sum int `json:"sum"`
}

// recordingLogger captures every Error call for assertions, grounded on the
// same need mini-rpc's middleware tests have for observing side effects
// rather than return values.
type recordingLogger struct {
	logging.Logger
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(msg string, kv ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
	l.Logger.Error(msg, kv...)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// recordingMiddleware appends the kind of every envelope it observes, in
// both directions, so a test can check which kinds passed through the
// pipeline.
func recordingMiddleware(seen *[]envelope.Kind, mu *sync.Mutex) middleware.Func {
	return func(_ context.Context, mc *middleware.Ctx) error {
		mu.Lock()
		*seen = append(*seen, mc.Envelope.Kind)
		mu.Unlock()
		return nil
	}
}

func TestTwoPartyAddition(t *testing.T) {
	c := contract.New(
		map[string]contract.RPCDescriptor{
			"add": contract.RPC(contract.RPCOptions[addArgs, addReply]{}),
		},
		nil,
		nil,
	)

	var mu sync.Mutex
	var seen []envelope.Kind

	serverOpts := runtime.ServerOptions{
		Handlers: map[string]runtime.Handler{
			"add": runtime.HandlerFunc(func(ctx context.Context, req addArgs) (addReply, error) {
				return addReply{Sum: req.A + req.B}, nil
			}),
		},
	}
	serverOpts.Middlewares = []middleware.Func{recordingMiddleware(&seen, &mu)}

	clientTransport, serverTransport := looptransport.NewPair()
	server := runtime.NewServer(c, serverOpts)
	defer server.Close()
	server.Accept(serverTransport)
	client := runtime.NewClient(clientTransport, c, runtime.ClientOptions{})
	defer client.Close()

	res, err := runtime.Call[addArgs, addReply](context.Background(), client, "add", addArgs{A: 2, B: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Sum)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, envelope.KindRPCRequest)
	require.Contains(t, seen, envelope.KindHello)
}

func TestUnknownMethod(t *testing.T) {
	c := contract.New(
		map[string]contract.RPCDescriptor{
			"missing": contract.RPC(contract.RPCOptions[addArgs, addReply]{}),
		},
		nil,
		nil,
	)
	// The server declares "missing" in its contract but supplies no handler,
	// so the rejection comes from the server-side NOT_FOUND path rather than
	// the client's own local ErrNotDeclared guard.
	clientTransport, serverTransport := looptransport.NewPair()
	server := runtime.NewServer(c, runtime.ServerOptions{})
	defer server.Close()
	server.Accept(serverTransport)
	client := runtime.NewClient(clientTransport, c, runtime.ClientOptions{})
	defer client.Close()

	_, err := runtime.Call[addArgs, addReply](context.Background(), client, "missing", addArgs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Method not found")
}

type slowArgs struct{}
type slowReply struct{}

func TestTimeout(t *testing.T) {
	c := contract.New(
		map[string]contract.RPCDescriptor{
			"slow": contract.RPC(contract.RPCOptions[slowArgs, slowReply]{}),
		},
		nil,
		nil,
	)

	clientTransport, serverTransport := looptransport.NewPair()
	server := runtime.NewServer(c, runtime.ServerOptions{
		Handlers: map[string]runtime.Handler{
			"slow": runtime.HandlerFunc(func(ctx context.Context, req slowArgs) (slowReply, error) {
				time.Sleep(500 * time.Millisecond)
				return slowReply{}, nil
			}),
		},
	})
	defer server.Close()
	server.Accept(serverTransport)

	clientOpts := runtime.ClientOptions{}
	clientOpts.Timeout = 50 * time.Millisecond
	client := runtime.NewClient(clientTransport, c, clientOpts)
	defer client.Close()

	start := time.Now()
	_, err := runtime.Call[slowArgs, slowReply](context.Background(), client, "slow", slowArgs{})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow")
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, elapsed, 400*time.Millisecond)

	// The late rpc_res, once the handler finally returns 500ms in, arrives
	// against an already-settled (and since removed) pending entry — Settle
	// is a silent no-op rather than a second delivery, so there is nothing
	// further to assert beyond the test not hanging or panicking.
	time.Sleep(500 * time.Millisecond)
}

type notifyArgs struct {
	Text string `json:"text"`
}
type notifyReply struct {
	Received bool `json:"received"`
}

func TestServerInitiatedRPC(t *testing.T) {
	c := contract.New(
		nil,
		map[string]contract.RPCDescriptor{
			"notify": contract.RPC(contract.RPCOptions[notifyArgs, notifyReply]{}),
		},
		nil,
	)

	clientTransport, serverTransport := looptransport.NewPair()
	server := runtime.NewServer(c, runtime.ServerOptions{})
	defer server.Close()
	conn := server.Accept(serverTransport)
	client := runtime.NewClient(clientTransport, c, runtime.ClientOptions{
		Handlers: map[string]runtime.Handler{
			"notify": runtime.HandlerFunc(func(ctx context.Context, req notifyArgs) (notifyReply, error) {
				return notifyReply{Received: true}, nil
			}),
		},
	})
	defer client.Close()

	res, err := runtime.CallClient[notifyArgs, notifyReply](context.Background(), conn, "notify", notifyArgs{Text: "Hi"})
	require.NoError(t, err)
	assert.True(t, res.Received)
}

type userJoined struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

func TestEventValidationFailureOnReceive(t *testing.T) {
	c := contract.New(
		nil,
		nil,
		map[string]contract.EventDescriptor{
			"userJoined": contract.Event(contract.EventOptions[userJoined]{
				Schema: contract.RequireNonEmpty("userId"),
			}),
		},
	)

	logger := &recordingLogger{Logger: logging.NewNoop()}

	clientTransport, serverTransport := looptransport.NewPair()
	server := runtime.NewServer(c, runtime.ServerOptions{})
	defer server.Close()
	server.Accept(serverTransport)

	clientOpts := runtime.ClientOptions{}
	clientOpts.Logger = logger
	client := runtime.NewClient(clientTransport, c, clientOpts)
	defer client.Close()

	var invoked int32
	dispose := runtime.Subscribe(client, "userJoined", func(_ userJoined) {
		atomic.AddInt32(&invoked, 1)
	})
	defer dispose()

	payload, err := json.Marshal(userJoined{UserID: "", Name: "X"})
	require.NoError(t, err)
	require.NoError(t, serverTransport.Send(context.Background(), mustEnvelope(t, "userJoined", payload)))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&invoked))
	assert.Equal(t, 1, logger.errorCount())
}

// mustEnvelope encodes a bare event envelope as canonical JSON, standing in
// for a peer's emit when the test needs to drive a malformed-by-contract
// payload directly onto the wire rather than through Emit (which would
// itself reject the payload before it ever reached the transport).
func mustEnvelope(t *testing.T, ch string, payload json.RawMessage) []byte {
	t.Helper()
	env := envelope.New(envelope.KindEvent, 1)
	env.Ch = ch
	env.P = payload
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestShutdownDrains(t *testing.T) {
	c := contract.New(
		map[string]contract.RPCDescriptor{
			"slow": contract.RPC(contract.RPCOptions[slowArgs, slowReply]{}),
		},
		nil,
		nil,
	)

	block := make(chan struct{})
	clientTransport, serverTransport := looptransport.NewPair()
	server := runtime.NewServer(c, runtime.ServerOptions{
		Handlers: map[string]runtime.Handler{
			"slow": runtime.HandlerFunc(func(ctx context.Context, req slowArgs) (slowReply, error) {
				<-block
				return slowReply{}, nil
			}),
		},
	})
	defer server.Close()
	server.Accept(serverTransport)
	client := runtime.NewClient(clientTransport, c, runtime.ClientOptions{})
	defer close(block)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := runtime.Call[slowArgs, slowReply](context.Background(), client, "slow", slowArgs{})
			errs[i] = err
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Close())
	wg.Wait()

	for _, err := range errs {
		assert.Error(t, err)
	}
}
