// SPDX-License-Identifier: GPL-3.0-or-later
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/CrawX/go-imap-triage/agent"
	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/events"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Handler struct {
	agent *agent.Agent
	bus   *events.Bus
	l     *logrus.Logger
}

func NewRouter(a *agent.Agent, bus *events.Bus) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	h := &Handler{agent: a, bus: bus, l: log.Logger(log.LOG_API)}

	r := gin.New()
	r.Use(h.logRequests, gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.GET("/events", h.Events)

		api.POST("/actions", h.RecordAction)
		api.GET("/emails/:id/importance", h.Importance)
		api.POST("/importance", h.ImportanceBatch)

		api.GET("/vips", h.ListVIPs)
		api.POST("/vips", h.AddVIP)

		accounts := api.Group("/accounts/:account")
		{
			accounts.GET("/importance", h.AccountImportance)
			accounts.POST("/triage", h.Triage)
			accounts.GET("/summary", h.LoadSummary)
			accounts.PUT("/summary", h.SaveSummary)
			accounts.POST("/summary/compact", h.CompactSummary)
		}

		api.GET("/triage/status", h.TriageStatus)

		skills := api.Group("/skills")
		{
			skills.GET("", h.ListSkills)
			skills.PATCH("/:id", h.ToggleSkill)
			skills.DELETE("/:id", h.DeleteSkill)
			skills.POST("/generate", h.GenerateSkills)
			skills.POST("/evaluate", h.EvaluateSkills)
			skills.POST("/cycle", h.RunCycle)
		}

		api.POST("/drafts", h.Draft)
		api.GET("/ai-config", h.LoadAIConfig)
		api.PUT("/ai-config", h.SaveAIConfig)
	}

	return r
}

func (h *Handler) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	h.l.WithFields(logrus.Fields{
		"method":   c.Request.Method,
		"path":     c.FullPath(),
		"status":   c.Writer.Status(),
		"duration": time.Since(start),
	}).Debug("Handled request")
}

// fail writes err with the status matching its kind.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.l.WithFields(logrus.Fields{"path": c.FullPath(), "error": err}).Warn("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Serve runs the API on listen until ctx is done.
func Serve(ctx context.Context, listen string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// event streams end with ctx instead of holding up the shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	l := log.Logger(log.LOG_API)

	errs := make(chan error, 1)
	go func() {
		l.WithField("listen", listen).Info("Serving api")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	l.Info("Api stopped")
	return nil
}
