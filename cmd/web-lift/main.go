package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lift-dispatch-simulator/internal/config"
	"lift-dispatch-simulator/pkg/lift"

	"github.com/gorilla/websocket"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Message types
// 메시지 타입 정의
type ClientMessage struct {
	Action    string         `json:"action"`
	Config    *lift.Config   `json:"config,omitempty"`
	Floor     int            `json:"floor,omitempty"`
	Direction lift.Direction `json:"direction,omitempty"`
	ID        lift.RequestID `json:"id,omitempty"`
}

type ServerMessage struct {
	Type      string         `json:"type"` // state | event | error
	EventType string         `json:"eventType,omitempty"`
	Tick      int            `json:"tick"`
	Payload   interface{}    `json:"payload,omitempty"`
	State     *lift.Snapshot `json:"state,omitempty"`
	Dropped   uint64         `json:"dropped,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// LiftSession manages a WebSocket connection with one lift engine.
// LiftSession은 엘리베이터 엔진과의 WebSocket 연결을 관리합니다.
type LiftSession struct {
	conn     *websocket.Conn
	interval time.Duration
	engine   *lift.Engine
	mu       sync.Mutex // engine, cancel
	writeMu  sync.Mutex // 동시 쓰기 방지
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewLiftSession(conn *websocket.Conn, interval time.Duration) *LiftSession {
	return &LiftSession{
		conn:     conn,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *LiftSession) HandleMessages() {
	slog.Info("Session started", "remote_addr", s.conn.RemoteAddr())
	defer func() {
		close(s.done)
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		_ = s.conn.Close()
		slog.Info("Session ended", "remote_addr", s.conn.RemoteAddr())
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Failed to parse message", "error", err)
			continue
		}

		s.handleAction(msg)
	}
}

func (s *LiftSession) handleAction(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("Action received", "action", msg.Action, "payload", msg)

	if msg.Action == "init" {
		s.initLift(msg.Config)
		return
	}
	e := s.engine
	if e == nil {
		s.sendError(errors.New("lift not initialized"))
		return
	}

	switch msg.Action {
	case "addCarCall":
		if _, err := e.AddCarCall(msg.Floor); err != nil {
			slog.Warn("Failed to add car call via WS", "floor", msg.Floor, "error", err)
			s.sendError(err)
		}
		s.sendState(e)
	case "addHallCall":
		if _, err := e.AddHallCall(msg.Floor, msg.Direction); err != nil {
			slog.Warn("Failed to add hall call via WS", "floor", msg.Floor, "dir", msg.Direction, "error", err)
			s.sendError(err)
		}
		s.sendState(e)
	case "cancel":
		outcome := e.CancelRequest(msg.ID)
		s.writeJSON(ServerMessage{Type: "event", EventType: "CancelOutcome", Tick: e.CurrentTick(), Payload: outcome.String()})
		s.sendState(e)
	case "outOfService":
		e.SetOutOfService()
		s.sendState(e)
	case "returnToService":
		if err := e.ReturnToService(); err != nil {
			s.sendError(err)
		}
		s.sendState(e)
	case "requests":
		s.writeJSON(ServerMessage{Type: "event", EventType: "Requests", Tick: e.CurrentTick(), Payload: e.Requests()})
	case "stop":
		if s.cancel != nil {
			s.cancel()
		}
		s.engine = nil
	case "getState":
		s.sendState(e)
	default:
		slog.Warn("Unknown action", "action", msg.Action)
	}
}

func (s *LiftSession) initLift(cfg *lift.Config) {
	if cfg == nil {
		slog.Warn("No config provided for init")
		return
	}

	// Stop existing lift if any
	if s.cancel != nil {
		s.cancel()
	}

	e, err := lift.NewEngine(*cfg)
	if err != nil {
		slog.Error("Failed to initialize lift", "error", err)
		s.sendError(err)
		return
	}
	s.engine = e

	// Start lift
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// Subscribe to events
	// 이벤트 구독
	go s.eventListener(ctx, e)
	go func() {
		if err := e.Run(ctx, s.interval); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Lift run error", "error", err)
		}
	}()

	slog.Info("Lift initialized", "id", cfg.ID, "floors", cfg.Floors, "strategy", cfg.Strategy)

	// Send initial state
	s.sendState(e)
}

func (s *LiftSession) eventListener(ctx context.Context, e *lift.Engine) {
	eventCh := e.Events()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case event := <-eventCh:
			s.sendEvent(event)
			if event.Type == lift.EventTick {
				s.sendState(e)
			}
		}
	}
}

func (s *LiftSession) sendState(e *lift.Engine) {
	snap := e.Snapshot()
	s.writeJSON(ServerMessage{
		Type:    "state",
		Tick:    e.CurrentTick(),
		State:   &snap,
		Dropped: e.DroppedEventCount(),
	})
}

func (s *LiftSession) sendEvent(event lift.Event) {
	s.writeJSON(ServerMessage{
		Type:      "event",
		EventType: string(event.Type),
		Tick:      event.Tick,
		Payload:   event.Payload,
	})
}

func (s *LiftSession) sendError(err error) {
	s.writeJSON(ServerMessage{Type: "error", Error: err.Error()})
}

func (s *LiftSession) writeJSON(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Error("Failed to write JSON message", "error", err)
	}
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}
	cfg.SetupLogger()

	// Serve static files from embedded filesystem
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}
		NewLiftSession(conn, cfg.TickInterval).HandleMessages()
	})

	addr := cfg.Addr()
	slog.Info("Starting lift web server", "addr", addr, "tick_interval", cfg.TickInterval)
	slog.Info("Open http://localhost" + addr + " in your browser")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
