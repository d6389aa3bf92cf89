// SPDX-License-Identifier: GPL-3.0-or-later
package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/drafting"

	"github.com/gin-gonic/gin"
)

type importanceView struct {
	EmailID    string            `json:"email_id"`
	Importance domain.Importance `json:"importance"`
	Reason     string            `json:"reason"`
}

func toImportanceView(r *domain.TriageRecord) importanceView {
	view := importanceView{EmailID: r.EmailID, Reason: r.Reason}
	if r.Importance != nil {
		view.Importance = *r.Importance
	}
	return view
}

func toImportanceViews(records map[string]*domain.TriageRecord) map[string]importanceView {
	views := make(map[string]importanceView, len(records))
	for id, r := range records {
		views[id] = toImportanceView(r)
	}
	return views
}

// Events streams every outbound event as a server-sent event until the
// client goes away.
func (h *Handler) Events(c *gin.Context) {
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	ctx := c.Request.Context()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(event.Name, event.Payload)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

type actionRequest struct {
	EmailID     string `json:"email_id" binding:"required"`
	Action      string `json:"action" binding:"required"`
	SenderEmail string `json:"sender_email"`
}

func (h *Handler) RecordAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	action, err := domain.ParseUserAction(req.Action)
	if err != nil {
		h.fail(c, err)
		return
	}

	err = h.agent.RecordAction(c.Request.Context(), req.EmailID, action, req.SenderEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Importance(c *gin.Context) {
	record, err := h.agent.Importance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toImportanceView(record))
}

type importanceRequest struct {
	EmailIDs []string `json:"email_ids" binding:"required"`
}

func (h *Handler) ImportanceBatch(c *gin.Context) {
	var req importanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	records, err := h.agent.ImportanceBatch(c.Request.Context(), req.EmailIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toImportanceViews(records))
}

func (h *Handler) AccountImportance(c *gin.Context) {
	records, err := h.agent.AccountImportance(c.Request.Context(), c.Param("account"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toImportanceViews(records))
}

func (h *Handler) ListVIPs(c *gin.Context) {
	vips, err := h.agent.ListVIPs(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vips)
}

type vipRequest struct {
	SenderEmail string `json:"sender_email" binding:"required"`
}

func (h *Handler) AddVIP(c *gin.Context) {
	var req vipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.agent.AddVIP(c.Request.Context(), req.SenderEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// Triage starts a run in the background, or with ?wait=true runs it and
// reports the statistics.
func (h *Handler) Triage(c *gin.Context) {
	account := c.Param("account")

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		err := h.agent.TriggerTriage(account)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Status(http.StatusAccepted)
		return
	}

	stats, err := h.agent.RunTriage(c.Request.Context(), account)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) TriageStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.agent.TriageStatus())
}

func (h *Handler) LoadSummary(c *gin.Context) {
	summary, err := h.agent.LoadSummary(c.Request.Context(), c.Param("account"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type summaryRequest struct {
	Summary      string `json:"summary"`
	MessageCount int    `json:"message_count"`
}

func (h *Handler) SaveSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.agent.SaveSummary(c.Request.Context(), c.Param("account"), req.Summary, req.MessageCount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type compactRequest struct {
	Messages []string `json:"messages"`
}

func (h *Handler) CompactSummary(c *gin.Context) {
	var req compactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	summary, err := h.agent.CompactSummary(c.Request.Context(), c.Param("account"), req.Messages)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListSkills(c *gin.Context) {
	skills, err := h.agent.ListSkills(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, skills)
}

type toggleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) ToggleSkill(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.agent.ToggleSkill(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteSkill(c *gin.Context) {
	err := h.agent.DeleteSkill(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GenerateSkills(c *gin.Context) {
	created, err := h.agent.GenerateSkills(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *Handler) EvaluateSkills(c *gin.Context) {
	ev, err := h.agent.EvaluateSkills(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": ev, "message": ev.String()})
}

func (h *Handler) RunCycle(c *gin.Context) {
	report, err := h.agent.RunCycle(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Draft(c *gin.Context) {
	var req drafting.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	body, err := h.agent.Draft(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"to": req.SenderEmail, "subject": "Re: " + req.Subject, "body": body})
}

type aiConfigView struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKeySet bool   `json:"api_key_set"`
}

func (h *Handler) LoadAIConfig(c *gin.Context) {
	cfg, err := h.agent.LoadAIConfig(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, aiConfigView{Endpoint: cfg.Endpoint, Model: cfg.Model, APIKeySet: cfg.APIKey != ""})
}

func (h *Handler) SaveAIConfig(c *gin.Context) {
	var req domain.AIConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.agent.SaveAIConfig(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
