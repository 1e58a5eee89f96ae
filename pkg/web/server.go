// Package web serves the live proximity dashboard: annotated frames and
// alert status over websockets plus a small JSON API.
package web

import (
	"context"
	_ "embed"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-proximity/internal/log"
	"github.com/teslashibe/go-proximity/pkg/alert"
	"github.com/teslashibe/go-proximity/pkg/hub"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

//go:embed index.html
var indexHTML []byte

// Settings is the running configuration reported by /api/config.
type Settings struct {
	ReferenceHeightCm float64 `json:"reference_height_cm"`
	FocalLength       float64 `json:"focal_length"`
	TriggerDistanceCm float64 `json:"trigger_distance_cm"`
	Confidence        float64 `json:"confidence"`
	TargetClassID     int     `json:"target_class_id"`
	ZeroHeight        string  `json:"zero_height"`
	Source            string  `json:"source"`
	Detector          string  `json:"detector"`
}

// Status is the latest frame event plus a readable distance bucket.
type Status struct {
	alert.Event
	Category string `json:"category"`
}

// Server is the dashboard. It implements alert.Actuator for status updates;
// display.Dashboard feeds it frames.
type Server struct {
	app  *fiber.App
	addr string

	settings Settings

	status   Status
	statusMu sync.RWMutex

	statusHub *hub.Hub
	frameHub  *hub.Hub
}

// NewServer creates a dashboard listening on addr (":8080").
func NewServer(addr string, settings Settings) *Server {
	s := &Server{
		addr:      addr,
		settings:  settings,
		status:    Status{Event: alert.Event{Action: alert.ActionOff}, Category: proximity.DistanceCategory(0)},
		statusHub: hub.New("status"),
		frameHub:  hub.New("frames"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Proximity Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the hubs and serves on the configured address until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go s.frameHub.Run(ctx)

	log.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine and logs a failure.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Warn("dashboard stopped", "error", err)
		}
	}()
}

// Act records ev as the current status and pushes it to status clients.
func (s *Server) Act(_ context.Context, ev alert.Event) error {
	st := Status{Event: ev, Category: proximity.DistanceCategory(0)}
	if ev.ClosestCm != nil {
		st.Category = proximity.DistanceCategory(*ev.ClosestCm)
	}

	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()

	return s.statusHub.BroadcastJSON(st)
}

// SendFrame pushes an encoded JPEG to frame clients.
func (s *Server) SendFrame(jpegData []byte) {
	s.frameHub.BroadcastBinary(jpegData)
}

// Status returns the most recent status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Shutdown stops the HTTP server. Hubs stop with the context given to Start.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
