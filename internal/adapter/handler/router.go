package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/johnquangdev/qa-review/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/qa-review/pkg/config"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Router holds all handlers
type Router struct {
	cfg           *config.Config
	tokens        middleware.TokenValidator
	metrics       *metrics.Metrics
	checks        map[string]HealthCheck
	criteria      *Criteria
	recording     *Recording
	transcription *Transcription
	webhook       *Webhook
}

// RouterDeps groups what the router wires together
type RouterDeps struct {
	Config        *config.Config
	Tokens        middleware.TokenValidator
	Metrics       *metrics.Metrics
	HealthChecks  map[string]HealthCheck
	Criteria      *Criteria
	Recording     *Recording
	Transcription *Transcription
	Webhook       *Webhook
}

// NewRouter creates a new router with all handlers
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		cfg:           deps.Config,
		tokens:        deps.Tokens,
		metrics:       deps.Metrics,
		checks:        deps.HealthChecks,
		criteria:      deps.Criteria,
		recording:     deps.Recording,
		transcription: deps.Transcription,
		webhook:       deps.Webhook,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	if rt.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(rt.metrics.Handler()))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	if rt.webhook != nil {
		v1.POST("/webhooks/assemblyai", rt.webhook.HandleAssemblyAI)
	}

	api := v1.Group("", middleware.EchoAuth(rt.tokens))
	rt.setupCriteriaRoutes(api)
	rt.setupRecordingRoutes(api)
	rt.setupTranscriptionRoutes(api)
}

// setupCriteriaRoutes configures template and scoring routes
func (rt *Router) setupCriteriaRoutes(g *echo.Group) {
	if rt.criteria == nil {
		return
	}
	h := rt.criteria
	criteria := g.Group("/criteria")
	criteria.POST("", h.CreateCriteria)
	criteria.GET("", h.ListCriteria)
	criteria.GET("/:id", h.GetCriteria)
	criteria.PUT("/:id", h.UpdateCriteria)
	criteria.DELETE("/:id", h.DeleteCriteria)
	criteria.POST("/:id/score", h.Score)

	criteria.POST("/:id/categories", h.CreateCategory)
	criteria.PUT("/:id/categories/:categoryId", h.UpdateCategory)
	criteria.DELETE("/:id/categories/:categoryId", h.DeleteCategory)

	criteria.POST("/:id/categories/:categoryId/metrics", h.CreateMetric)
	criteria.PUT("/:id/categories/:categoryId/metrics/:metricId", h.UpdateMetric)
	criteria.DELETE("/:id/categories/:categoryId/metrics/:metricId", h.DeleteMetric)
}

// setupRecordingRoutes configures recording routes
func (rt *Router) setupRecordingRoutes(g *echo.Group) {
	if rt.recording == nil {
		return
	}
	h := rt.recording
	recordings := g.Group("/recordings")
	recordings.GET("/:id", h.GetRecording)
	recordings.GET("/:id/audio-url", h.GetAudioURL)
	recordings.GET("/:id/transcription", h.GetTranscription)
	recordings.POST("/:id/transcription/import", h.ImportTranscription)
	recordings.POST("/:id/evaluations", h.SubmitEvaluation)
	recordings.GET("/:id/evaluations", h.ListEvaluations)
}

// setupTranscriptionRoutes configures transcript editing routes
func (rt *Router) setupTranscriptionRoutes(g *echo.Group) {
	if rt.transcription == nil {
		return
	}
	h := rt.transcription
	transcriptions := g.Group("/transcriptions")
	transcriptions.GET("/:id", h.GetTranscription)
	transcriptions.PATCH("/:id", h.UpdateTranscription)

	transcriptions.POST("/:id/segments", h.CreateSegment)
	transcriptions.PUT("/:id/segments/:segmentId", h.UpdateSegment)
	transcriptions.DELETE("/:id/segments/:segmentId", h.DeleteSegment)

	transcriptions.PUT("/:id/speakers/:speakerId", h.UpsertSpeaker)
	transcriptions.DELETE("/:id/speakers/:speakerId", h.RemoveSpeaker)
	transcriptions.PUT("/:id/sections/:sectionId", h.UpsertSection)
	transcriptions.DELETE("/:id/sections/:sectionId", h.RemoveSection)
}

// healthCheck returns health status. Any failing dependency turns it into a 503.
func (rt *Router) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(rt.checks))
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	environment := ""
	if rt.cfg != nil {
		environment = rt.cfg.Server.Environment
	}
	return c.JSON(status, map[string]interface{}{
		"status":       overall,
		"environment":  environment,
		"dependencies": deps,
	})
}
