package network

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

// generateTestKey generates a random ed25519 key pair for testing.
func generateTestKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return priv
}

// startServer starts a serving node with an echo handler.
func startServer(t *testing.T, key ed25519.PrivateKey) *Node {
	t.Helper()

	server, err := NewNode(Config{
		PrivateKey: key,
		ListenAddr: "127.0.0.1:0",
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	server.OnRequest(func(p *Peer, data []byte) ([]byte, error) {
		return append([]byte("echo:"), data...), nil
	})

	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	return server
}

// newClient creates a dial-only node.
func newClient(t *testing.T) *Node {
	t.Helper()

	client, err := NewNode(Config{PrivateKey: generateTestKey(t)})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

// TestNodeStartStop tests starting and stopping a node.
func TestNodeStartStop(t *testing.T) {
	node, err := NewNode(Config{
		PrivateKey: generateTestKey(t),
		ListenAddr: "127.0.0.1:0",
	})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}

	if err := node.Start(); err != nil {
		t.Fatalf("start node: %v", err)
	}

	if err := node.Close(); err != nil {
		t.Fatalf("close node: %v", err)
	}
}

// TestDialOnlyCannotServe tests that a node without listen address refuses Start.
func TestDialOnlyCannotServe(t *testing.T) {
	if err := newClient(t).Start(); err == nil {
		t.Error("expected error starting dial-only node")
	}
}

// TestRequestResponse tests a round trip through a dialed peer.
func TestRequestResponse(t *testing.T) {
	serverKey := generateTestKey(t)
	server := startServer(t, serverKey)
	client := newClient(t)

	peer, err := client.Dial(context.Background(), server.Addr(), serverKey.Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	response, err := peer.Request(context.Background(), []byte("hello"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	expected := []byte("echo:hello")
	if !bytes.Equal(response, expected) {
		t.Errorf("response mismatch: got %q, want %q", response, expected)
	}
}

// TestDialReusesConnection tests that repeated dials share one connection.
func TestDialReusesConnection(t *testing.T) {
	server := startServer(t, generateTestKey(t))
	client := newClient(t)

	first, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	second, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if first != second {
		t.Error("expected cached peer on second dial")
	}

	if client.Cached() != 1 {
		t.Errorf("cached connections: got %d, want 1", client.Cached())
	}
}

// TestDialKeyMismatch tests certificate pinning.
func TestDialKeyMismatch(t *testing.T) {
	server := startServer(t, generateTestKey(t))
	client := newClient(t)

	other := generateTestKey(t).Public().(ed25519.PublicKey)

	_, err := client.Dial(context.Background(), server.Addr(), other)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}

	if client.Cached() != 0 {
		t.Errorf("rejected peer must not be cached, got %d", client.Cached())
	}
}

// TestEvictRedials tests that an evicted peer is replaced on the next dial.
func TestEvictRedials(t *testing.T) {
	server := startServer(t, generateTestKey(t))
	client := newClient(t)

	peer, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	client.Evict(peer)

	if _, err := peer.Request(context.Background(), []byte("x")); err == nil {
		t.Error("expected error on evicted peer")
	}

	fresh, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("redial: %v", err)
	}

	if fresh == peer {
		t.Error("expected a new peer after eviction")
	}

	if _, err := fresh.Request(context.Background(), []byte("x")); err != nil {
		t.Errorf("request on fresh peer: %v", err)
	}
}

// TestRequestTimeout tests request timeout handling.
func TestRequestTimeout(t *testing.T) {
	server := startServer(t, generateTestKey(t))

	server.OnRequest(func(p *Peer, data []byte) ([]byte, error) {
		time.Sleep(500 * time.Millisecond)
		return []byte("late"), nil
	})

	client := newClient(t)

	peer, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()

	if _, err := peer.Request(ctx, []byte("hello")); err == nil {
		t.Error("expected timeout error")
	}

	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("request outlived its deadline: %v", elapsed)
	}
}

// TestHandlerErrorFailsRequest tests that a handler error reaches the caller.
func TestHandlerErrorFailsRequest(t *testing.T) {
	server := startServer(t, generateTestKey(t))

	server.OnRequest(func(p *Peer, data []byte) ([]byte, error) {
		return nil, errors.New("refused")
	})

	client := newClient(t)

	peer, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := peer.Request(ctx, []byte("hello")); err == nil {
		t.Error("expected error from refusing handler")
	}
}

// TestLargeMessage tests frames close to the size limit.
func TestLargeMessage(t *testing.T) {
	server := startServer(t, generateTestKey(t))
	client := newClient(t)

	peer, err := client.Dial(context.Background(), server.Addr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	payload := bytes.Repeat([]byte{0xAB}, 1<<20)

	response, err := peer.Request(context.Background(), payload)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if len(response) != len(payload)+len("echo:") {
		t.Errorf("response length: got %d, want %d", len(response), len(payload)+5)
	}
}

// TestFrameTooLarge tests the framing size guard.
func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer

	if err := writeFrame(&buf, make([]byte, maxFrameSize+1)); err == nil {
		t.Error("expected error for oversized frame")
	}

	if err := writeFrame(&buf, []byte("ok")); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	data, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	if string(data) != "ok" {
		t.Errorf("frame mismatch: got %q", data)
	}
}
