// Package relay accepts websocket connections from browser clients that run
// face tracking themselves. Clients stream landmarks, camera frames and
// input events; the relay feeds them to the tracker, the video source and
// the session.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/input"
	"github.com/teslashibe/go-shade/pkg/protocol"
	"github.com/teslashibe/go-shade/pkg/tracking"
	"github.com/teslashibe/go-shade/pkg/video"
)

// ErrUnknownInput is returned for an input event of unknown kind.
var ErrUnknownInput = errors.New("relay: unknown input kind")

// Inputs receives input events. *session.Session implements it.
type Inputs interface {
	Click(ctx context.Context, x, y float64, vp input.Viewport) (bool, error)
	Swipe(ctx context.Context, startX, endX float64) (input.Gesture, error)
	Press(ctx context.Context, x, y float64, vp input.Viewport) error
	Move(ctx context.Context, x, y float64, vp input.Viewport) error
	Release(ctx context.Context, x float64) (input.Gesture, error)
	Scroll(ctx context.Context, deltaY float64) (bool, error)
	Key(ctx context.Context, name string) (input.Gesture, error)
	External(ctx context.Context, index int) error
}

// Client is a connected browser.
type Client struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the client.
func (c *Client) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Relay manages browser client connections.
type Relay struct {
	tracker *tracking.Remote
	frames  *video.Pushed
	inputs  Inputs
	logger  *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	// source is the client whose landmarks the tracker currently holds
	source *Client

	// Stats
	messagesReceived  atomic.Uint64
	landmarksReceived atomic.Uint64
	framesReceived    atomic.Uint64
	framesDropped     atomic.Uint64
	inputsReceived    atomic.Uint64
	failures          atomic.Uint64
}

// New creates a relay. Any of tracker, frames and inputs may be nil; the
// matching messages are then ignored.
func New(tracker *tracking.Remote, frames *video.Pushed, inputs Inputs) *Relay {
	return &Relay{
		tracker: tracker,
		frames:  frames,
		inputs:  inputs,
		logger:  log.Component("relay"),
		clients: make(map[string]*Client),
	}
}

// RegisterRoutes registers the client websocket endpoint on a Fiber app.
func (r *Relay) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/client", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/client", websocket.New(r.handleClient))
	app.Get("/ws/client/:id", websocket.New(r.handleClient))
}

func (r *Relay) handleClient(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	client := &Client{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	r.mu.Lock()
	if old, ok := r.clients[id]; ok {
		r.logger.Info("client replaced", "id", id, "since", old.Connected)
	}
	r.clients[id] = client
	count := len(r.clients)
	r.mu.Unlock()
	r.logger.Info("client connected", "id", id, "clients", count)

	defer func() {
		r.mu.Lock()
		// a reconnect under the same id may already own the slot
		if r.clients[id] == client {
			delete(r.clients, id)
		}
		wasSource := r.source == client
		if wasSource {
			r.source = nil
		}
		count := len(r.clients)
		r.mu.Unlock()
		// the face went away with the client that tracked it
		if wasSource && r.tracker != nil {
			r.tracker.Lost()
		}
		r.logger.Info("client disconnected", "id", id, "clients", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			r.logger.Debug("read ended", "id", id, "error", err)
			return
		}

		client.mu.Lock()
		client.LastSeen = time.Now()
		client.mu.Unlock()

		r.messagesReceived.Add(1)
		if err := r.handleMessage(client, data); err != nil {
			r.failures.Add(1)
			r.logger.Warn("message rejected", "id", id, "error", err)
			if msg, merr := protocol.NewErrorMessage(err); merr == nil {
				client.Send(msg)
			}
		}
	}
}

// handleMessage processes one message from a client.
func (r *Relay) handleMessage(client *Client, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		lm, err := msg.GetLandmarksData()
		if err != nil {
			return err
		}
		r.landmarksReceived.Add(1)
		if r.tracker != nil {
			r.mu.Lock()
			r.source = client
			r.mu.Unlock()
			return r.tracker.Push(FrameFromLandmarks(lm))
		}

	case protocol.TypeLost:
		r.mu.Lock()
		owns := r.source == nil || r.source == client
		if owns {
			r.source = nil
		}
		r.mu.Unlock()
		if owns && r.tracker != nil {
			r.tracker.Lost()
		}

	case protocol.TypeFrame:
		fd, err := msg.GetFrameData()
		if err != nil {
			return err
		}
		r.framesReceived.Add(1)
		if r.frames == nil {
			return nil
		}
		raw, err := fd.DecodeFrameData()
		if err != nil {
			return err
		}
		kept, err := r.frames.Push(raw)
		if errors.Is(err, video.ErrBlank) {
			// warm-up frames are expected; keep the last good one
			r.framesDropped.Add(1)
			return nil
		}
		if err != nil {
			return err
		}
		if !kept {
			r.framesDropped.Add(1)
		}

	case protocol.TypeInput:
		in, err := msg.GetInputData()
		if err != nil {
			return err
		}
		r.inputsReceived.Add(1)
		if r.inputs != nil {
			return r.dispatch(context.Background(), in)
		}

	case protocol.TypePing:
		var ping protocol.PingData
		msg.ParseData(&ping)
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return client.Send(pong)

	default:
		r.logger.Debug("ignoring message", "id", client.ID, "type", msg.Type)
	}
	return nil
}

// dispatch routes an input event to the session.
func (r *Relay) dispatch(ctx context.Context, in *protocol.InputData) error {
	vp := input.Viewport{Width: in.Width, Height: in.Height}
	var err error
	switch in.Kind {
	case protocol.InputClick:
		_, err = r.inputs.Click(ctx, in.X, in.Y, vp)
	case protocol.InputSwipe:
		_, err = r.inputs.Swipe(ctx, in.X, in.EndX)
	case protocol.InputPress:
		err = r.inputs.Press(ctx, in.X, in.Y, vp)
	case protocol.InputMove:
		err = r.inputs.Move(ctx, in.X, in.Y, vp)
	case protocol.InputRelease:
		_, err = r.inputs.Release(ctx, in.X)
	case protocol.InputScroll:
		_, err = r.inputs.Scroll(ctx, in.DeltaY)
	case protocol.InputKey:
		_, err = r.inputs.Key(ctx, in.Key)
	case protocol.InputExternal:
		err = r.inputs.External(ctx, in.Index)
	default:
		err = ErrUnknownInput
	}
	return err
}

// FrameFromLandmarks converts a browser tracking result to a Frame.
func FrameFromLandmarks(lm *protocol.LandmarksData) tracking.Frame {
	f := tracking.Frame{
		Face:      geometry.Transform(lm.Face),
		Landmarks: make([]r3.Vector, len(lm.Landmarks)),
	}
	for i, p := range lm.Landmarks {
		f.Landmarks[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
	}
	return f
}

// Broadcast sends a message to every connected client.
func (r *Relay) Broadcast(msg *protocol.Message) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			r.logger.Warn("broadcast failed", "id", c.ID, "error", err)
		}
	}
}

// ClientCount returns the number of connected clients.
func (r *Relay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Stats contains relay statistics.
type Stats struct {
	ClientCount       int    `json:"client_count"`
	MessagesReceived  uint64 `json:"messages_received"`
	LandmarksReceived uint64 `json:"landmarks_received"`
	FramesReceived    uint64 `json:"frames_received"`
	FramesDropped     uint64 `json:"frames_dropped"`
	InputsReceived    uint64 `json:"inputs_received"`
	Errors            uint64 `json:"errors"`
}

// GetStats returns relay statistics.
func (r *Relay) GetStats() Stats {
	return Stats{
		ClientCount:       r.ClientCount(),
		MessagesReceived:  r.messagesReceived.Load(),
		LandmarksReceived: r.landmarksReceived.Load(),
		FramesReceived:    r.framesReceived.Load(),
		FramesDropped:     r.framesDropped.Load(),
		InputsReceived:    r.inputsReceived.Load(),
		Errors:            r.failures.Load(),
	}
}

// ClientInfo describes a connected client.
type ClientInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetClientInfos returns info about all connected clients.
func (r *Relay) GetClientInfos() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		c.mu.Lock()
		infos = append(infos, ClientInfo{
			ID:        c.ID,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers client management routes.
func (r *Relay) RegisterAPIRoutes(api fiber.Router) {
	clients := api.Group("/clients")

	clients.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"clients": r.GetClientInfos(),
			"count":   r.ClientCount(),
		})
	})

	clients.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(r.GetStats())
	})
}
