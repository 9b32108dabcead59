// Package api exposes the running game over HTTP: status, the shot journal,
// spreadsheet reports and a websocket event stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"battleship/internal/events"
	"battleship/internal/history"
	"battleship/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GameView is the live session served by the API
type GameView interface {
	Snapshot() session.Snapshot
}

// MatchStore is the read side of the match history
type MatchStore interface {
	Recent(ctx context.Context, limit int) ([]history.MatchRecord, error)
	Match(ctx context.Context, sessionID string) (*history.MatchRecord, error)
}

// SessionLookup reads the shared session registry
type SessionLookup interface {
	Lookup(ctx context.Context, id string) (map[string]string, error)
}

// Server represents the HTTP server
type Server struct {
	router   *gin.Engine
	game     GameView
	hub      *events.Hub
	matches  MatchStore
	registry SessionLookup
	http     *http.Server
}

// NewServer creates the server; hub may be nil to disable the event stream
func NewServer(game GameView, hub *events.Hub) *Server {
	return &Server{game: game, hub: hub}
}

// SetMatchStore enables the /api/v1/matches routes
func (s *Server) SetMatchStore(store MatchStore) {
	s.matches = store
}

// SetSessionLookup enables /api/v1/sessions/:id
func (s *Server) SetSessionLookup(registry SessionLookup) {
	s.registry = registry
}

// Setup initializes routes and handlers
func (s *Server) Setup() {
	s.router = gin.New()
	s.router.Use(gin.LoggerWithWriter(gin.DefaultWriter), gin.Recovery())

	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.router.GET("/health", s.health)

	api := s.router.Group("/api/v1")
	{
		api.GET("/game", s.getGame)
		api.GET("/game/shots", s.getShots)
		api.GET("/game/report.xlsx", s.getGameReport)

		if s.matches != nil {
			api.GET("/matches", s.listMatches)
			api.GET("/matches/:id", s.getMatch)
			api.GET("/matches/:id/report.xlsx", s.getMatchReport)
		}
		if s.registry != nil {
			api.GET("/sessions/:id", s.getSession)
		}
	}

	if s.hub != nil {
		s.router.GET("/ws/events", func(c *gin.Context) {
			s.hub.ServeWS(c.Writer, c.Request)
		})
		s.router.GET("/ws/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"connected_clients": s.hub.ClientCount()})
		})
	}
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP on addr until Shutdown
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[API] HTTP server listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	snap := s.game.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"session_id": snap.SessionID,
		"role":       snap.Role,
		"state":      snap.State,
	})
}

func (s *Server) getGame(c *gin.Context) {
	snap := s.game.Snapshot()
	// The fleet stays hidden until the game is over
	if snap.Phase != session.PhaseFinished {
		snap.Ships = nil
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) getShots(c *gin.Context) {
	snap := s.game.Snapshot()
	shots := snap.Shots
	if by := c.Query("by"); by != "" {
		shots = snap.ShotsBy(session.Role(by))
	}
	if shots == nil {
		shots = []session.Shot{}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": snap.SessionID,
		"count":      len(shots),
		"shots":      shots,
	})
}

func (s *Server) getGameReport(c *gin.Context) {
	s.writeReport(c, history.FromSnapshot(s.game.Snapshot()))
}

func (s *Server) listMatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	matches, err := s.matches.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[API] List matches: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list matches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *Server) getMatch(c *gin.Context) {
	m, err := s.matches.Match(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) getMatchReport(c *gin.Context) {
	m, err := s.matches.Match(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	s.writeReport(c, *m)
}

func (s *Server) getSession(c *gin.Context) {
	fields, err := s.registry.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("[API] Session lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registry unavailable"})
		return
	}
	if len(fields) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (s *Server) writeReport(c *gin.Context, m history.MatchRecord) {
	buf, err := history.ExportShots(m)
	if err != nil {
		log.Printf("[API] Export %s: %v", m.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=battleship_%s.xlsx", m.SessionID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
