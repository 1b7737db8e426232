// Package rpc serves the node's JSON-RPC 2.0 API over net/http and
// pushes live events over a gorilla/websocket upgrade, the methods and
// push events spec.md §6 lists exactly. Grounded on the teacher's
// app/rpc/rpchandlers (one handler function per RPC method, dispatched
// by method name against a shared rpccontext), adapted from kaspad's
// custom binary-framed RPC to a plain JSON-RPC 2.0 envelope and routed
// with gorilla/mux instead of a bespoke multiplexer.
package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/botho-project/botho/domain/consensus"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/domain/consensus/utils/ledgercodec"
	"github.com/botho-project/botho/infrastructure/logger"
	"github.com/botho-project/botho/txtypes"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var log = logger.Subsystem("RPCS")

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// response is a JSON-RPC 2.0 response envelope; exactly one of Result
// and Error is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// EventKind names a push event delivered over the WebSocket upgrade.
type EventKind string

const (
	EventNewBlock        EventKind = "new-block"
	EventDetectedDeposit EventKind = "detected-deposit"
	EventSCPProgress     EventKind = "scp-progress"
)

// Event is one push message broadcast to every connected WebSocket
// subscriber.
type Event struct {
	Kind    EventKind   `json:"kind"`
	Payload interface{} `json:"payload"`
}

// PeerCounter reports the node's current gossip peer count, implemented
// by network/gossip.Node; kept as a narrow interface so rpc doesn't
// import libp2p directly.
type PeerCounter interface {
	PeerCount() int
}

// Server is the node's JSON-RPC 2.0 + WebSocket-push HTTP API.
type Server struct {
	consensus *consensus.Consensus
	peers     PeerCounter
	startedAt time.Time
	minting   func() bool

	http     *http.Server
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

// New builds a Server bound to listenAddr. mintingActive reports
// whether this node currently has minting enabled, for node_getStatus.
func New(listenAddr string, c *consensus.Consensus, peers PeerCounter, mintingActive func() bool) *Server {
	s := &Server{
		consensus: c,
		peers:     peers,
		startedAt: time.Now(),
		minting:   mintingActive,
		subs:      make(map[*websocket.Conn]struct{}),
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRPC).Methods(http.MethodPost)
	router.HandleFunc("/ws", s.handleWebSocket)

	s.http = &http.Server{Addr: listenAddr, Handler: router}
	return s
}

// Start begins serving in the background. It returns once the listener
// is bound, or an error if the bind itself failed (spec.md §6 exit code
// 4: "network bind failed").
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return errors.Wrap(err, "starting rpc server")
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	return s.http.Close()
}

// Broadcast pushes ev to every currently-connected WebSocket
// subscriber.
func (s *Server) Broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.subs {
		if err := conn.WriteJSON(ev); err != nil {
			log.Warnf("dropping websocket subscriber: %v", err)
			conn.Close()
			delete(s.subs, conn)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	s.mu.Lock()
	s.subs[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	result, err := s.dispatch(req.Method, req.Params)
	resp := response{JSONRPC: "2.0", ID: req.ID}
	if err != nil {
		resp.Error = &rpcError{Code: -32000, Message: err.Error()}
	} else {
		resp.Result = result
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) dispatch(method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "chain_getInfo":
		return s.chainGetInfo()
	case "chain_getBlock":
		return s.chainGetBlock(params)
	case "chain_getOutputs":
		return s.chainGetOutputs(params)
	case "tx_submit":
		return s.txSubmit(params)
	case "mempool_size":
		return map[string]int{"size": s.consensus.MempoolSize()}, nil
	case "node_getStatus":
		return s.nodeGetStatus(), nil
	default:
		return nil, errors.Errorf("unknown method %q", method)
	}
}

type chainInfoResult struct {
	Height     uint64 `json:"height"`
	TipHash    string `json:"tip_hash"`
	Difficulty uint64 `json:"difficulty"`
	TotalMined uint64 `json:"total_mined"`
	FeesBurned uint64 `json:"fees_burned"`
}

func (s *Server) chainGetInfo() (interface{}, error) {
	height := s.consensus.Height()
	tip := s.consensus.TipHash()
	return chainInfoResult{
		Height:     height,
		TipHash:    hex.EncodeToString(tip[:]),
		Difficulty: s.consensus.TipDifficulty(),
		// TotalMined is not tracked and is always reported as
		// zero; fee burning is not
		// part of this build's minting design (coinbasemanager pays
		// fees to the minter), so FeesBurned is always zero.
		TotalMined: 0,
		FeesBurned: 0,
	}, nil
}

type blockParams struct {
	Height *uint64 `json:"height"`
	Hash   string  `json:"hash"`
}

func (s *Server) chainGetBlock(raw json.RawMessage) (interface{}, error) {
	var p blockParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "invalid params")
	}

	var (
		block *txtypes.Block
		ok    bool
	)
	switch {
	case p.Height != nil:
		block, ok = s.consensus.BlockByHeight(*p.Height)
	case p.Hash != "":
		raw, err := hex.DecodeString(p.Hash)
		if err != nil || len(raw) != 32 {
			return nil, errors.New("invalid hash")
		}
		var h txtypes.Hash
		copy(h[:], raw)
		block, ok = s.consensus.Block(h)
	default:
		return nil, errors.New("height or hash required")
	}
	if !ok {
		return nil, errors.New("block not found")
	}
	return map[string]string{"block": hex.EncodeToString(ledgercodec.EncodeBlock(block))}, nil
}

type outputsParams struct {
	StartIndex int `json:"start_index"`
	Count      int `json:"count"`
}

func (s *Server) chainGetOutputs(raw json.RawMessage) (interface{}, error) {
	var p outputsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "invalid params")
	}
	entries, err := s.consensus.RangeOutputs(p.StartIndex, p.Count)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = hex.EncodeToString(ledgercodec.EncodeUTXOEntry(e))
	}
	return map[string]interface{}{"outputs": out}, nil
}

type txSubmitParams struct {
	TxBytes      string `json:"tx_bytes"`
	BlockVersion uint32 `json:"block_version"`
}

func (s *Server) txSubmit(raw json.RawMessage) (interface{}, error) {
	var p txSubmitParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "invalid params")
	}
	data, err := hex.DecodeString(p.TxBytes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex")
	}
	tx, err := ledgercodec.DecodeTransaction(data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid transaction")
	}
	if err := s.consensus.SubmitTransaction(tx, p.BlockVersion); err != nil {
		return nil, err
	}
	hash := hashserialization.TransactionHash(tx)
	return map[string]string{"tx_hash": hex.EncodeToString(hash[:])}, nil
}

type statusResult struct {
	ChainHeight       uint64 `json:"chainHeight"`
	PeerCount         int    `json:"peerCount"`
	SCPPeerCount      int    `json:"scpPeerCount"`
	MempoolSize       int    `json:"mempoolSize"`
	TotalTransactions uint64 `json:"totalTransactions"`
	UptimeSeconds     int64  `json:"uptimeSeconds"`
	MintingActive     bool   `json:"mintingActive"`
}

func (s *Server) nodeGetStatus() statusResult {
	peerCount := 0
	if s.peers != nil {
		peerCount = s.peers.PeerCount()
	}
	mintingActive := false
	if s.minting != nil {
		mintingActive = s.minting()
	}
	return statusResult{
		ChainHeight: s.consensus.Height(),
		PeerCount:   peerCount,
		// The scp-messages/v1 topic rides the same gossip peer set as
		// every other topic, so there is no separate SCP peer roster
		// to count.
		SCPPeerCount:  peerCount,
		MempoolSize:   s.consensus.MempoolSize(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		MintingActive: mintingActive,
	}
}
