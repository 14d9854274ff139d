package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf      = 64
	writeDeadline    = 10 * time.Second
	defaultHeartbeat = 15 * time.Second
)

// Envelope is the unified WS message shape: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an Envelope. Marshal failures yield an
// envelope without data.
func NewEnvelope(typ string, data interface{}) *Envelope {
	env := &Envelope{Type: typ}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			env.Data = b
		}
	}
	return env
}

// Session represents one account's open notification connection.
type Session struct {
	AccountID int64
	Conn      *websocket.Conn

	SendChan chan []byte
	Done     chan struct{}

	closeOnce sync.Once
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewSession creates a Session and starts its write pump. heartbeat is the
// server ping interval; a peer that misses one heartbeat before the next is
// disconnected by the read deadline in the handler.
func NewSession(accountID int64, conn *websocket.Conn, heartbeat time.Duration, logger *zap.Logger) *Session {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	s := &Session{
		AccountID: accountID,
		Conn:      conn,
		SendChan:  make(chan []byte, sendChanBuf),
		Done:      make(chan struct{}),
		heartbeat: heartbeat,
		logger:    logger,
	}
	go s.writePump()
	return s
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data, ok := <-s.SendChan:
			if !ok {
				return
			}
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error",
					zap.Int64("account_id", s.AccountID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes env and sends it non-blocking. Returns false if the session
// is closed or the buffer is full (message dropped, fire-and-forget).
func (s *Session) Send(env *Envelope) bool {
	if s.IsClosed() {
		return false
	}
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	select {
	case s.SendChan <- data:
		return true
	case <-s.Done:
		return false
	default:
		if !s.IsClosed() {
			s.logger.Warn("send channel full, dropping message",
				zap.Int64("account_id", s.AccountID),
				zap.String("type", env.Type))
		}
		return false
	}
}

// Close signals the write pump to shut down. Safe to call from multiple
// goroutines; a displacing Register and the read pump's deferred cleanup
// may both reach it.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.Done)
	})
}

// IsClosed returns true if the session has been closed.
func (s *Session) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// ReadDeadline returns how long a peer may stay silent before being
// considered dead: two heartbeat intervals.
func (s *Session) ReadDeadline() time.Duration {
	return 2 * s.heartbeat
}

// ResetReadDeadline pushes the WebSocket read deadline forward.
func (s *Session) ResetReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(s.ReadDeadline()))
}

// SendPong answers a client-level ping message.
func (s *Session) SendPong(clientTS int64) {
	type pongPayload struct {
		ClientTS int64 `json:"client_ts"`
		ServerTS int64 `json:"server_ts"`
	}
	s.Send(NewEnvelope("pong", pongPayload{
		ClientTS: clientTS,
		ServerTS: time.Now().UnixMilli(),
	}))
}
