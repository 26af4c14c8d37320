// Package httpapi exposes the control API: switcher state, manual cuts,
// session lifecycle, and sequence listings.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/datastore"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/session"
	"github.com/screener/screener-go/internal/switcher"
)

// Control is the surface the API drives. The director implements it and
// serializes all mutations into the processing loop.
type Control interface {
	SwitcherState() switcher.State
	ControllerState() string
	RequestCut(index int, reason string) error
	SetGolfMode(enabled bool) error
	StartSession(golferID string) (*session.GolfSessionInfo, error)
	StopSession() (*session.GolfSessionInfo, error)
	CurrentSession() *session.GolfSessionInfo
	CalibrateIdleReference() error
}

// Server is the HTTP control API server.
type Server struct {
	echo    *echo.Echo
	control Control
	store   datastore.Interface
	cache   *cache.Cache
	listen  string
	version string
	log     *slog.Logger
}

// New creates the API server. The datastore may be nil when persistence
// is disabled; sequence listing endpoints then return 404.
func New(settings *conf.Settings, control Control, store datastore.Interface) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		control: control,
		store:   store,
		cache:   cache.New(5*time.Second, time.Minute),
		listen:  settings.Realtime.HTTP.Listen,
		version: settings.Version,
		log:     logging.ForService("httpapi"),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	g := e.Group("/api/v1")
	g.GET("/health", s.handleHealth)
	g.GET("/switcher", s.handleSwitcherState)
	g.POST("/switcher/cut", s.handleCut)
	g.POST("/switcher/golfmode", s.handleGolfMode)
	g.POST("/switcher/calibrate", s.handleCalibrate)
	g.GET("/session", s.handleSessionGet)
	g.POST("/session/start", s.handleSessionStart)
	g.POST("/session/stop", s.handleSessionStop)
	g.GET("/sequences", s.handleRecentSequences)
	g.GET("/sessions/:id/sequences", s.handleSessionSequences)

	return s
}

// Start runs the listener until Shutdown or failure.
func (s *Server) Start() error {
	s.log.Info("control API listening", "address", s.listen)
	if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the route tree for serving through an external listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleSwitcherState(c echo.Context) error {
	state := s.control.SwitcherState()
	return c.JSON(http.StatusOK, map[string]any{
		"active_source_index": state.ActiveSourceIndex,
		"golf_mode_enabled":   state.GolfModeEnabled,
		"last_cut_time":       state.LastCutTime,
		"controller_state":    s.control.ControllerState(),
	})
}

type cutRequest struct {
	Source int `json:"source"`
}

func (s *Server) handleCut(c echo.Context) error {
	var req cutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Source != switcher.SourceGolfer && req.Source != switcher.SourceSimulator {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source index out of range"})
	}
	if err := s.control.RequestCut(req.Source, switcher.ReasonManual); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"active_source_index": req.Source})
}

type golfModeRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleGolfMode(c echo.Context) error {
	var req golfModeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := s.control.SetGolfMode(req.Enabled); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"golf_mode_enabled": req.Enabled})
}

func (s *Server) handleCalibrate(c echo.Context) error {
	if err := s.control.CalibrateIdleReference(); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "calibrated"})
}

type sessionStartRequest struct {
	GolferID string `json:"golfer_id"`
}

func (s *Server) handleSessionGet(c echo.Context) error {
	info := s.control.CurrentSession()
	if info == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no session"})
	}
	return c.JSON(http.StatusOK, sessionResponse(info))
}

func (s *Server) handleSessionStart(c echo.Context) error {
	var req sessionStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	info, err := s.control.StartSession(req.GolferID)
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, sessionResponse(info))
}

func (s *Server) handleSessionStop(c echo.Context) error {
	info, err := s.control.StopSession()
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sessionResponse(info))
}

func sessionResponse(info *session.GolfSessionInfo) map[string]any {
	resp := map[string]any{
		"id":          info.ID,
		"golfer_id":   info.GolferID,
		"start_time":  info.StartTime,
		"swing_count": info.SwingCount,
		"active":      info.Active(),
	}
	if info.EndTime != nil {
		resp["end_time"] = *info.EndTime
	}
	return resp
}

func (s *Server) handleRecentSequences(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "datastore disabled"})
	}
	const cacheKey = "sequences:recent"
	if cached, found := s.cache.Get(cacheKey); found {
		return c.JSON(http.StatusOK, cached)
	}
	seqs, err := s.store.GetRecentSequences(50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	s.cache.Set(cacheKey, seqs, cache.DefaultExpiration)
	return c.JSON(http.StatusOK, seqs)
}

func (s *Server) handleSessionSequences(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "datastore disabled"})
	}
	sessionID := c.Param("id")
	cacheKey := "sequences:" + sessionID
	if cached, found := s.cache.Get(cacheKey); found {
		return c.JSON(http.StatusOK, cached)
	}
	seqs, err := s.store.GetSequences(sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	s.cache.Set(cacheKey, seqs, cache.DefaultExpiration)
	return c.JSON(http.StatusOK, seqs)
}
