// Package api serves the trade journal read-only over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ftilbury/aibot/journal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// Store is the read side of a journal.
type Store interface {
	GetTrade(ctx context.Context, tradeID string) (journal.TradeRecord, error)
	ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]journal.TradeRecord, error)
	ListEquity(ctx context.Context, symbol string, start, end time.Time) ([]journal.EquityPoint, error)
}

type Server struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	router *gin.Engine
}

func NewServer(store Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		logger: logger.Named("api"),
		now:    time.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	s.setupRoutes(r)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/trades", s.handleTradesByDay)
		v1.GET("/trades/:id", s.handleGetTrade)
		v1.GET("/equity/:symbol", s.handleEquity)
	}
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.now().Unix(),
	})
}

// handleTradesByDay lists trades closed on ?day=YYYY-MM-DD (UTC, default
// today) with their summary.
func (s *Server) handleTradesByDay(c *gin.Context) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	if q := c.Query("day"); q != "" {
		d, err := time.Parse(dayLayout, q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
			return
		}
		day = d
	}

	trades, err := s.store.ListTradesClosedBetween(c.Request.Context(), day, day.AddDate(0, 0, 1))
	if err != nil {
		s.internalError(c, err)
		return
	}
	if trades == nil {
		trades = []journal.TradeRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"day":     day.Format(dayLayout),
		"trades":  trades,
		"summary": journal.Summarize(trades),
	})
}

func (s *Server) handleGetTrade(c *gin.Context) {
	id := c.Param("id")
	t, err := s.store.GetTrade(c.Request.Context(), id)
	if errors.Is(err, journal.ErrTradeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// handleEquity returns the curve of :symbol, optionally bounded by ?from= and
// ?to= (RFC3339 or YYYY-MM-DD).
func (s *Server) handleEquity(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	from, err := parseBound(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad from: " + err.Error()})
		return
	}
	to, err := parseBound(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad to: " + err.Error()})
		return
	}

	points, err := s.store.ListEquity(c.Request.Context(), symbol, from, to)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if points == nil {
		points = []journal.EquityPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "equity": points})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dayLayout, s)
}
