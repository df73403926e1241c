// Package network carries validator-to-miner requests over QUIC with
// ed25519 certificate pinning.
package network

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"Lingua/internal/logger"
)

const (
	// defaultIdleTimeout closes cached connections nobody used for a while.
	defaultIdleTimeout = 60 * time.Second

	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "lingua/1"
)

// Config holds the configuration for a Node.
type Config struct {
	PrivateKey  ed25519.PrivateKey // PrivateKey is the node's ed25519 private key
	ListenAddr  string             // ListenAddr is the address to serve on, empty for dial-only nodes
	IdleTimeout time.Duration      // IdleTimeout is the QUIC idle timeout for connections
}

// Node dials miners and, when a listen address is set, serves requests.
// Outbound connections are cached per address and evicted when they die.
type Node struct {
	privateKey ed25519.PrivateKey // privateKey is the node's ed25519 private key
	publicKey  ed25519.PublicKey  // publicKey is the node's ed25519 public key
	listenAddr string             // listenAddr is the address to listen on
	tlsConfig  *tls.Config        // tlsConfig is the TLS configuration
	quicConfig *quic.Config       // quicConfig is the QUIC configuration

	listener *quic.Listener // listener is the QUIC listener, nil for dial-only nodes

	peers   map[string]*Peer // peers maps dialed address to its live connection
	peersMu sync.Mutex       // peersMu protects peers

	onRequest  func(*Peer, []byte) ([]byte, error) // onRequest handles inbound requests
	handlersMu sync.RWMutex                        // handlersMu protects onRequest

	ctx    context.Context    // ctx is the node's context
	cancel context.CancelFunc // cancel cancels the node's context
	wg     sync.WaitGroup     // wg waits for goroutines to finish
}

// NewNode creates a new network node.
func NewNode(cfg Config) (*Node, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	idle := cfg.IdleTimeout
	if idle == 0 {
		idle = defaultIdleTimeout
	}

	cert, err := generateCertificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tls.RequireAnyClientCert,
		InsecureSkipVerify: true, // keys are pinned in verifyPeerKey
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  idle,
		KeepAlivePeriod: idle / 3,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PrivateKey.Public().(ed25519.PublicKey),
		listenAddr: cfg.ListenAddr,
		tlsConfig:  tlsConfig,
		quicConfig: quicConfig,
		peers:      make(map[string]*Peer),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// PublicKey returns the node's public key.
func (n *Node) PublicKey() ed25519.PublicKey {
	return n.publicKey
}

// Addr returns the listener's address. Returns empty string if not started.
func (n *Node) Addr() string {
	if n.listener == nil {
		return ""
	}

	return n.listener.Addr().String()
}

// Start begins accepting inbound connections.
func (n *Node) Start() error {
	if n.listenAddr == "" {
		return fmt.Errorf("listen address is required to serve")
	}

	listener, err := quic.ListenAddr(n.listenAddr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	n.listener = listener

	n.wg.Add(1)
	go n.acceptLoop()

	return nil
}

// Dial returns a live connection to addr, reusing a cached one when its
// key still matches. A non-nil expected key is pinned against the
// remote certificate.
func (n *Node) Dial(ctx context.Context, addr string, expected ed25519.PublicKey) (*Peer, error) {
	if p := n.cached(addr); p != nil {
		if expected == nil || p.publicKey.Equal(expected) {
			return p, nil
		}

		// Same address now claims another identity; drop the stale link
		n.Evict(p)
	}

	conn, err := quic.DialAddr(ctx, addr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s:\n%w", addr, err)
	}

	pubKey, err := verifyPeerKey(conn.ConnectionState().TLS, expected)
	if err != nil {
		conn.CloseWithError(1, "identity rejected")
		return nil, err
	}

	peer := &Peer{publicKey: pubKey, address: addr, conn: conn, node: n}

	n.peersMu.Lock()
	if existing := n.peers[addr]; existing != nil && !existing.closed.Load() && existing.publicKey.Equal(pubKey) {
		n.peersMu.Unlock()
		peer.Close()

		return existing, nil
	}
	n.peers[addr] = peer
	n.peersMu.Unlock()

	n.wg.Add(1)
	go n.watch(peer)

	return peer, nil
}

// Evict closes a peer and drops it from the cache.
func (n *Node) Evict(p *Peer) {
	n.peersMu.Lock()
	if n.peers[p.address] == p {
		delete(n.peers, p.address)
	}
	n.peersMu.Unlock()

	p.Close()
}

// Cached returns the number of cached outbound connections.
func (n *Node) Cached() int {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()

	return len(n.peers)
}

// OnRequest sets the handler for inbound requests.
// The handler receives request data and returns response data.
func (n *Node) OnRequest(fn func(*Peer, []byte) ([]byte, error)) {
	n.handlersMu.Lock()
	n.onRequest = fn
	n.handlersMu.Unlock()
}

// Close stops the node and closes all connections.
func (n *Node) Close() error {
	n.cancel()

	if n.listener != nil {
		n.listener.Close()
	}

	n.peersMu.Lock()
	for _, p := range n.peers {
		p.Close()
	}
	n.peers = make(map[string]*Peer)
	n.peersMu.Unlock()

	n.wg.Wait()

	return nil
}

// cached returns the live cached peer for addr, or nil.
func (n *Node) cached(addr string) *Peer {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()

	p := n.peers[addr]
	if p == nil || p.closed.Load() {
		return nil
	}

	return p
}

// watch evicts a dialed peer once its connection ends.
func (n *Node) watch(p *Peer) {
	defer n.wg.Done()

	select {
	case <-p.conn.Context().Done():
		logger.Debug("miner connection closed", "addr", p.address)
	case <-n.ctx.Done():
	}

	n.Evict(p)
}

// acceptLoop accepts incoming connections.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept(n.ctx)
		if err != nil {
			return // Listener closed
		}

		n.wg.Add(1)
		go n.handleIncoming(conn)
	}
}

// handleIncoming serves request streams on an accepted connection.
func (n *Node) handleIncoming(conn quic.Connection) {
	defer n.wg.Done()

	pubKey, err := peerKey(conn.ConnectionState().TLS)
	if err != nil {
		conn.CloseWithError(1, "setup failed")
		return
	}

	peer := &Peer{
		publicKey: pubKey,
		address:   conn.RemoteAddr().String(),
		conn:      conn,
		node:      n,
	}

	peer.serve(n.ctx)
	peer.Close()
}

// callOnRequest calls the onRequest handler if set.
func (n *Node) callOnRequest(p *Peer, data []byte) ([]byte, error) {
	n.handlersMu.RLock()
	fn := n.onRequest
	n.handlersMu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("no request handler registered")
	}

	return fn(p, data)
}
