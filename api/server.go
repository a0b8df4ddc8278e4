package api

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/pipeline"
	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/config"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

// Controller is the part of the agent the control surface drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	StartDetection(ctx context.Context) error
	DisableProcessing()
	AddSuspect(ctx context.Context, suspect model.Suspect) error
	Suspects() []model.Suspect
	Snapshot() pipeline.Snapshot
	Frame() ([]byte, error)
}

type Server struct {
	app         *fiber.App
	cfgSvc      config.IService
	ctrl        Controller
	analysisSvc analysis.IService

	done     chan struct{}
	doneOnce sync.Once
}

func New(cfgSvc config.IService, ctrl Controller, analysisSvc analysis.IService) *Server {
	s := &Server{
		cfgSvc:      cfgSvc,
		ctrl:        ctrl,
		analysisSvc: analysisSvc,
		done:        make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "vs-live",
		BodyLimit:             20 * 1024 * 1024,
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	if limit := cfgSvc.GetControlRateLimit(); limit > 0 {
		app.Use(newRateLimiter(rate.Limit(limit), cfgSvc.GetControlBurst()).handle)
	}

	app.Post("/camera/start", s.handleStartCamera)
	app.Post("/camera/stop", s.handleStopCamera)
	app.Post("/detection/start", s.handleStartDetection)
	app.Post("/detection/stop", s.handleStopDetection)
	app.Post("/suspects", s.handleAddSuspect)
	app.Get("/suspects", s.handleListSuspects)
	app.Get("/state", s.handleState)
	app.Get("/frame.jpg", s.handleFrame)
	app.Get("/records", s.handleRecords)
	app.Delete("/records/:id", s.handleDeleteRecord)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	lgr.Logger.Info("control surface listening", slog.String("address", addr))
	return s.app.Listen(addr)
}

// Serve is Listen on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	lgr.Logger.Info("control surface listening", slog.String("address", ln.Addr().String()))
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.app.ShutdownWithContext(ctx)
}

// handleStateWS pushes a snapshot on connect and then every feed interval.
func (s *Server) handleStateWS(conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfgSvc.GetStateFeedInterval())
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.ctrl.Snapshot()); err != nil {
			lgr.Logger.Debug("state feed closed", slog.Any("error", err))
			return
		}

		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}
