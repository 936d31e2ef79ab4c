package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/render"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	pingPeriod     = 5 * time.Second
	// Must exceed pingPeriod.
	pongWait = 3 * pingPeriod

	frameBuffer = 8
	inputBuffer = 64
)

// Client message types.
const (
	MsgMouse  = "mouse"
	MsgAction = "action"
	MsgReset  = "reset"
	MsgPolicy = "policy"
)

var errClientGone = errors.New("client disconnected")

// knownMessage reports whether t is a message type the session handles. Only
// these are used as metric labels.
func knownMessage(t string) bool {
	switch t {
	case MsgMouse, MsgAction, MsgReset, MsgPolicy:
		return true
	}
	return false
}

// ClientMessage is what the browser sends. X is in SVG user units.
type ClientMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Action *int    `json:"action,omitempty"`
	Name   string  `json:"name,omitempty"`
}

// session drives one engine for one websocket client. Only the owner
// goroutine (loop) touches the engine and policy; the reader forwards
// messages to it over inputs.
type session struct {
	id      string
	srv     *Server
	conn    *websocket.Conn
	logger  *slog.Logger
	limiter *rate.Limiter

	cfg      *config.Config
	engine   *env.Engine
	renderer *render.SVGRenderer
	frames   chan render.Frame
	inputs   chan ClientMessage

	policyName string
	policy     dynamo.Controller
	manual     *control.Manual
	episodes   int
	// sinceFrame accumulates simulated wall time since the last frame.
	sinceFrame time.Duration
}

func newSession(srv *Server, conn *websocket.Conn) (*session, error) {
	cfg := srv.Config()
	id := uuid.NewString()
	s := &session{
		id:      id,
		srv:     srv,
		conn:    conn,
		logger:  srv.logger.With("session", id),
		limiter: rate.NewLimiter(rate.Limit(cfg.Server.MouseRate), cfg.Server.MouseBurst),
		frames:  make(chan render.Frame, frameBuffer),
		inputs:  make(chan ClientMessage, inputBuffer),
		manual:  control.NewManual(),
	}
	if err := s.configure(cfg); err != nil {
		return nil, err
	}
	if err := s.setPolicy(cfg.Policy); err != nil {
		return nil, err
	}
	return s, nil
}

// configure builds a fresh engine and renderer for cfg. A renderer that
// replaces an earlier one resends the scene geometry with its first frame,
// since the page was drawn for the old scene.
func (s *session) configure(cfg *config.Config) error {
	scene := render.DefaultScene(cfg.Env.XThreshold, cfg.Env.PoleHalfLength)
	renderer := render.NewSVGRenderer(scene, render.ChannelSink(s.frames))
	eng, err := env.New(cfg.Env, env.WithRenderer(renderer), env.WithLogger(s.logger))
	if err != nil {
		return err
	}
	if s.engine != nil {
		_ = s.engine.Close()
		renderer.DrawGeometry()
	}
	s.cfg = cfg
	s.engine = eng
	s.renderer = renderer
	return nil
}

func (s *session) setPolicy(name string) error {
	if name == "manual" {
		s.policyName, s.policy = name, s.manual
		return nil
	}
	p, err := control.Switch(name, s.cfg.PolicyParams, nil)
	if err != nil {
		return err
	}
	s.policyName, s.policy = name, p
	return nil
}

// run blocks until the client goes away or ctx is cancelled.
func (s *session) run(ctx context.Context) error {
	sessionsActive.Inc()
	defer sessionsActive.Dec()
	s.logger.Info("session started", "policy", s.policyName)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.read(gctx) })
	g.Go(func() error { return s.loop(gctx) })
	g.Go(func() error { return s.publish(gctx) })
	g.Go(func() error { return s.ping(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		// Unblocks the reader.
		_ = s.conn.Close()
		return nil
	})

	err := g.Wait()
	_ = s.engine.Close()
	s.logger.Info("session ended", "episodes", s.episodes)
	if errors.Is(err, errClientGone) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *session) read(ctx context.Context) error {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Every read error is permanent for the connection.
			if ctx.Err() == nil && !isClosure(err) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return errClientGone
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("bad client message", "error", err)
			messagesTotal.WithLabelValues("invalid").Inc()
			continue
		}
		if !knownMessage(msg.Type) {
			messagesTotal.WithLabelValues("unknown").Inc()
			s.logger.Debug("unknown client message", "type", msg.Type)
			continue
		}
		messagesTotal.WithLabelValues(msg.Type).Inc()
		if msg.Type == MsgMouse && !s.limiter.Allow() {
			mouseDropped.Inc()
			continue
		}

		select {
		case s.inputs <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// loop owns the engine. It steps on a fixed wall-clock interval and applies
// client input between steps.
func (s *session) loop(ctx context.Context) error {
	s.reset()
	s.renderer.SetText(SessionID, s.id)
	s.stats()
	s.renderer.Flush(0)

	ticker := channerics.NewTicker(ctx.Done(), s.cfg.Server.ControlInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.inputs:
			s.apply(msg)
		case _, ok := <-ticker:
			if !ok {
				return nil
			}
			if err := s.step(); err != nil {
				return err
			}
		}
	}
}

func (s *session) apply(msg ClientMessage) {
	switch msg.Type {
	case MsgMouse:
		s.engine.UpdateMousePosition(s.renderer.Scene().Scale.ToWorld(msg.X))
	case MsgAction:
		if msg.Action == nil || !env.Action(*msg.Action).Valid() {
			s.logger.Warn("invalid action from client")
			return
		}
		s.manual.SetAction(env.Action(*msg.Action))
		s.policyName, s.policy = "manual", s.manual
	case MsgReset:
		s.reset()
	case MsgPolicy:
		if err := s.setPolicy(msg.Name); err != nil {
			s.logger.Warn("policy change rejected", "name", msg.Name, "error", err)
		}
	default:
		s.logger.Debug("unknown client message", "type", msg.Type)
	}
}

// reset starts a new episode, picking up a config swapped in since the
// last one.
func (s *session) reset() {
	if cfg := s.srv.Config(); cfg != s.cfg {
		if err := s.configure(cfg); err != nil {
			s.logger.Warn("keeping previous config", "error", err)
		} else {
			s.logger.Info("session picked up new config", "preset", cfg.Preset)
			s.limiter.SetLimit(rate.Limit(cfg.Server.MouseRate))
			s.limiter.SetBurst(cfg.Server.MouseBurst)
			if err := s.setPolicy(s.policyName); err != nil {
				s.logger.Warn("keeping previous policy", "name", s.policyName, "error", err)
			}
		}
	}
	s.engine.Reset()
	s.sinceFrame = 0
}

func (s *session) step() error {
	start := time.Now()
	state := s.engine.State()
	a := control.Discretize(s.policy.Compute(state, s.engine.Time()))
	if _, err := s.engine.Step(a); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	stepDuration.Observe(time.Since(start).Seconds())
	stepsTotal.Inc()

	if s.engine.OutOfBounds() {
		fallsTotal.Inc()
		s.episodes++
		s.logger.Debug("episode ended", "steps", s.engine.Elapsed(), "episodes", s.episodes)
		s.reset()
		s.stats()
		s.engine.Render(0)
		return nil
	}

	s.sinceFrame += s.cfg.Server.ControlInterval
	if s.sinceFrame >= time.Second/time.Duration(s.cfg.Server.FPS) {
		s.stats()
		s.engine.Render(s.sinceFrame)
		s.sinceFrame = 0
	}
	return nil
}

func (s *session) stats() {
	st := s.engine.State()
	s.renderer.SetText(render.StatsID, fmt.Sprintf("%s  episode %d  step %d  x %+.2f  θ %+.1f°",
		s.policyName, s.episodes+1, s.engine.Elapsed(),
		st[dynamo.IdxX], st[dynamo.IdxTheta]*180/math.Pi))
}

func (s *session) publish(ctx context.Context) error {
	for fr := range channerics.OrDone(ctx.Done(), (<-chan render.Frame)(s.frames)) {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("failed to set deadline: %w", err)
		}
		if err := s.conn.WriteJSON(fr); err != nil {
			if isClosure(err) {
				return errClientGone
			}
			return fmt.Errorf("publish failed: %w", err)
		}
	}
	return nil
}

func (s *session) ping(ctx context.Context) error {
	for range channerics.NewTicker(ctx.Done(), pingPeriod) {
		if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			if isClosure(err) || ctx.Err() != nil {
				return errClientGone
			}
			return fmt.Errorf("ping failed: %w", err)
		}
	}
	return nil
}

func isClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, websocket.ErrCloseSent)
}
