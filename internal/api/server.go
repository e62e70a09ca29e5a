// Package api exposes the consultation engine over HTTP: running
// consultations, browsing history, listing the supported guideline coverage
// and a live feed of completed consultations.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/cache"
	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/history"
	"github.com/oncoguide-server/internal/knowledge"
	"github.com/oncoguide-server/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	config       *domain.Config
	logger       *logrus.Logger
	router       *gin.Engine
	server       *http.Server
	consultation domain.ConsultationRunner
	kb           domain.GuidelineLookup
	store        history.Store
	results      *cache.ResultCache
	feed         *Feed
}

// NewServer creates a new HTTP server instance
func NewServer(
	config *domain.Config,
	logger *logrus.Logger,
	consultation domain.ConsultationRunner,
	kb domain.GuidelineLookup,
	store history.Store,
	results *cache.ResultCache,
) *Server {
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(config.API.RequestTimeout))
	router.Use(middleware.NewRateLimiter(&config.API).Handler())

	server := &Server{
		config:       config,
		logger:       logger,
		router:       router,
		consultation: consultation,
		kb:           kb,
		store:        store,
		results:      results,
	}

	if config.API.FeedEnabled {
		server.feed = NewFeed(logger)
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	if s.feed != nil {
		go s.feed.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/consultations", s.handleRunConsultation)
		v1.GET("/consultations", s.handleListConsultations)
		v1.GET("/consultations/:id", s.handleGetConsultation)
		v1.DELETE("/consultations/:id", s.handleDeleteConsultation)

		v1.GET("/guidelines", s.handleListGuidelines)
		v1.GET("/guidelines/:cancerType/:stage", s.handleGetGuideline)

		if s.feed != nil {
			v1.GET("/feed", s.feed.Serve)
		}
	}
}

// consultationRequest is the HTTP request body for running a consultation.
// The cancer type accepts both enum names and common clinical labels.
type consultationRequest struct {
	UserID            string   `json:"user_id"`
	CancerType        string   `json:"cancer_type" binding:"required"`
	Stage             string   `json:"stage" binding:"required"`
	ProposedTreatment string   `json:"proposed_treatment" binding:"required"`
	Symptoms          []string `json:"symptoms"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// handleRunConsultation runs one consultation, persists the result and
// publishes it to the live feed.
func (s *Server) handleRunConsultation(c *gin.Context) {
	var body consultationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Invalid request body", err.Error())
		return
	}

	cancerType, err := domain.ParseCancerType(body.CancerType)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Unsupported cancer type", err.Error())
		return
	}

	req := &domain.ConsultationRequest{
		UserID:            body.UserID,
		CancerType:        cancerType,
		Stage:             body.Stage,
		ProposedTreatment: body.ProposedTreatment,
		Symptoms:          body.Symptoms,
	}

	if s.results != nil {
		if cached, ok := s.results.Get(c.Request.Context(), req); ok {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	result, err := s.consultation.RunConsultation(c.Request.Context(), req)
	if err != nil {
		s.respondConsultationError(c, err)
		return
	}

	if err := s.store.Save(c.Request.Context(), history.NewRecord(req.UserID, result)); err != nil {
		// The consultation itself succeeded; losing the history row is
		// logged but does not fail the request.
		s.logger.WithError(err).WithField("consultation_id", result.ConsultationID).
			Error("Failed to persist consultation")
	}

	if s.results != nil {
		s.results.Set(c.Request.Context(), req, result)
	}
	if s.feed != nil {
		s.feed.Publish(result)
	}

	c.JSON(http.StatusOK, result)
}

// handleListConsultations lists stored consultations, optionally per user.
func (s *Server) handleListConsultations(c *gin.Context) {
	userID := c.Query("user_id")
	limit := intQuery(c, "limit", 20, 100)
	offset := intQuery(c, "offset", 0, 1<<30)

	records, err := s.store.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage,
			"Failed to list consultations", "")
		return
	}
	count, err := s.store.Count(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage,
			"Failed to count consultations", "")
		return
	}

	if records == nil {
		records = []*history.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"consultations": records,
		"total":         count,
		"limit":         limit,
		"offset":        offset,
	})
}

// handleGetConsultation returns one stored consultation by ID.
func (s *Server) handleGetConsultation(c *gin.Context) {
	record, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage,
			"Failed to load consultation", "")
		return
	}
	if record == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound,
			"Consultation not found", "")
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleDeleteConsultation removes one stored consultation.
func (s *Server) handleDeleteConsultation(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage,
			"Failed to load consultation", "")
		return
	}
	if record == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound,
			"Consultation not found", "")
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage,
			"Failed to delete consultation", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// guidelineSummary is the list representation of one curated combination.
type guidelineSummary struct {
	CancerType            string   `json:"cancer_type"`
	CancerDisplayName     string   `json:"cancer_display_name"`
	Stage                 string   `json:"stage"`
	StageDisplay          string   `json:"stage_display"`
	RecommendedTreatments []string `json:"recommended_treatments"`
	GuidelineSource       string   `json:"guideline_source"`
	EvidenceLevel         string   `json:"evidence_level"`
}

// handleListGuidelines lists every curated (cancer type, stage) combination.
func (s *Server) handleListGuidelines(c *gin.Context) {
	entries := s.kb.Entries()
	summaries := make([]guidelineSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, guidelineSummary{
			CancerType:            entry.CancerType.String(),
			CancerDisplayName:     entry.CancerType.DisplayName(),
			Stage:                 entry.Stage,
			StageDisplay:          knowledge.FormatStage(entry.CancerType, entry.Stage),
			RecommendedTreatments: entry.RecommendedTreatments,
			GuidelineSource:       entry.GuidelineSource,
			EvidenceLevel:         entry.EvidenceLevel,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"guidelines": summaries,
		"total":      len(summaries),
	})
}

// handleGetGuideline returns the full curated entry for one combination.
func (s *Server) handleGetGuideline(c *gin.Context) {
	cancerType, err := domain.ParseCancerType(c.Param("cancerType"))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Unsupported cancer type", err.Error())
		return
	}

	stage := knowledge.NormalizeStage(cancerType, c.Param("stage"))
	entry, err := s.kb.Lookup(cancerType, stage)
	if err != nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeUnknownCombination,
			"No guideline entry for this cancer type and stage", err.Error())
		return
	}
	c.JSON(http.StatusOK, entry)
}

// respondConsultationError maps core errors onto HTTP statuses. Invalid
// input and unknown combinations are the two programmatically handled
// outcomes; anything else is an internal error.
func (s *Server) respondConsultationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Invalid consultation input", err.Error())
	case errors.Is(err, domain.ErrUnknownCombination):
		s.respondError(c, http.StatusUnprocessableEntity, domain.ErrCodeUnknownCombination,
			"This cancer type and stage combination is not currently supported", err.Error())
	default:
		s.logger.WithError(err).Error("Consultation failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternal,
			"Internal server error", "")
	}
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": domain.NewAPIError(code, message, details, c.GetString("correlation_id")),
	})
}

func intQuery(c *gin.Context, name string, fallback, max int) int {
	var value int
	if _, err := fmt.Sscanf(c.DefaultQuery(name, fmt.Sprintf("%d", fallback)), "%d", &value); err != nil {
		return fallback
	}
	if value < 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
