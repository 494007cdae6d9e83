// README: HTTP surface: routes for starting, reading, and driving a tracking session.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/engine"
	"ridetrack/internal/http/middleware"
	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/tripmod"
	"ridetrack/internal/types"
)

type Server struct {
	hub *Hub
}

func NewServer(hub *Hub) *Server {
	return &Server{hub: hub}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery(), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	track := r.Group("/api/track/:orderID")
	track.POST("", s.handleStart)
	track.GET("", s.handleState)
	track.DELETE("", s.handleStop)
	track.POST("/messages", s.handleSendMessage)
	track.POST("/messages/read", s.handleMarkRead)
	track.POST("/typing", s.handleTyping)
	track.POST("/chat/open", s.handleChatOpen)
	track.POST("/modification", s.handleRequestModification)
	track.DELETE("/modification", s.handleCancelModification)
	track.POST("/modification/confirmation", s.handleResolveModification)
	return r
}

func (s *Server) handleStart(c *gin.Context) {
	orderID := types.ID(c.Param("orderID"))
	if err := s.hub.Start(c.Request.Context(), orderID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": orderID, "tracking": true})
}

func (s *Server) handleState(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	c.JSON(http.StatusOK, stateView(e.State()))
}

func (s *Server) handleStop(c *gin.Context) {
	if !s.hub.Stop(types.ID(c.Param("orderID"))) {
		writeError(c, engine.ErrNotTracking)
		return
	}
	c.Status(http.StatusNoContent)
}

type sendMessageReq struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	mtype := chat.MessageType(req.Type)
	if mtype == "" {
		mtype = chat.MessageText
	}
	msg, err := e.SendMessage(c.Request.Context(), req.Content, mtype)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageView(msg))
}

type markReadReq struct {
	MessageIDs []string `json:"message_ids"`
}

func (s *Server) handleMarkRead(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	var req markReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := e.MarkRead(c.Request.Context(), req.MessageIDs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": e.UnreadCount()})
}

type typingReq struct {
	Text string `json:"text"`
}

func (s *Server) handleTyping(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	var req typingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	e.OnTextChanged(req.Text)
	c.JSON(http.StatusOK, gin.H{"typing": e.Typing()})
}

type chatOpenReq struct {
	Open bool `json:"open"`
}

func (s *Server) handleChatOpen(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	var req chatOpenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	e.SetChatOpen(req.Open)
	c.Status(http.StatusNoContent)
}

type modificationReq struct {
	Type           string      `json:"type"`
	NewDestination *pointView  `json:"new_destination"`
	ExtraStops     []pointView `json:"extra_stops"`
	Notes          string      `json:"notes"`
}

func (s *Server) handleRequestModification(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	var req modificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	mod := tripmod.Request{Type: tripmod.ModificationType(req.Type), Notes: req.Notes}
	if req.NewDestination != nil {
		mod.NewDestination = &types.Point{Lat: req.NewDestination.Lat, Lng: req.NewDestination.Lng}
	}
	for _, p := range req.ExtraStops {
		mod.ExtraStops = append(mod.ExtraStops, types.Point{Lat: p.Lat, Lng: p.Lng})
	}
	quote, err := e.RequestModification(c.Request.Context(), mod)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quoteView(quote))
}

func (s *Server) handleCancelModification(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	e.CancelModification()
	c.Status(http.StatusNoContent)
}

type confirmationReq struct {
	Status string `json:"status"`
}

func (s *Server) handleResolveModification(c *gin.Context) {
	e, ok := s.hub.Get(types.ID(c.Param("orderID")))
	if !ok {
		writeError(c, engine.ErrNotTracking)
		return
	}
	var req confirmationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := e.ResolveModification(tripmod.ConfirmationStatus(req.Status)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmation": e.Confirmation()})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrOrderNotFound), errors.Is(err, engine.ErrNotTracking):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrAlreadyTracking),
		errors.Is(err, tripmod.ErrNotAllowed),
		errors.Is(err, tripmod.ErrInFlight),
		errors.Is(err, tripmod.ErrNoRequest):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsNetwork(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
