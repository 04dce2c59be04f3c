package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/adapters/apierr"
	"github.com/dkeye/Standup/internal/app"
	"github.com/dkeye/Standup/internal/domain"
)

type handlers struct {
	sessions  *app.Registry
	artifacts *app.ArtifactStore
}

type AddMemberRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	TimeLimit int    `json:"time_limit"`
}

type StartRecordingRequest struct {
	MemberID string `json:"member_id" binding:"required"`
}

type SavePresetRequest struct {
	Name string `json:"name"`
}

type MemberResponse struct {
	Member *domain.Member `json:"member,omitempty"`
	State  app.View       `json:"state"`
}

type RecordingResponse struct {
	Recording *domain.Recording `json:"recording,omitempty"`
	State     app.View          `json:"state"`
}

type PresetResponse struct {
	Preset *domain.TeamPreset `json:"preset,omitempty"`
	State  app.View           `json:"state"`
}

func (h *handlers) session(c *gin.Context) *app.Session {
	return h.sessions.GetOrCreate(app.ClientID(c.GetString(clientTokenKey)))
}

func fail(c *gin.Context, err error) {
	status := apierr.Status(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apierr.Code(err), "message": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": apierr.CodeBadPayload, "message": err.Error()})
}

func (h *handlers) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).View())
}

func (h *handlers) endSession(c *gin.Context) {
	h.sessions.Remove(app.ClientID(c.GetString(clientTokenKey)))
	c.Status(http.StatusNoContent)
}

func (h *handlers) addMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	s := h.session(c)
	m, ok, err := s.AddMember(req.Name, role, req.TimeLimit)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, MemberResponse{State: s.View()})
		return
	}
	c.JSON(http.StatusCreated, MemberResponse{Member: &m, State: s.View()})
}

func (h *handlers) removeMember(c *gin.Context) {
	s := h.session(c)
	if err := s.RemoveMember(domain.MemberID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) buildQueue(c *gin.Context) {
	s := h.session(c)
	s.BuildQueue()
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) shuffleQueue(c *gin.Context) {
	s := h.session(c)
	s.ShuffleQueue()
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) rotateQueue(c *gin.Context) {
	s := h.session(c)
	s.RotateQueue()
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) dequeue(c *gin.Context) {
	s := h.session(c)
	if err := s.Dequeue(domain.MemberID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) startRecording(c *gin.Context) {
	var req StartRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s := h.session(c)
	if err := s.StartRecording(c.Request.Context(), domain.MemberID(req.MemberID)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) stopRecording(c *gin.Context) {
	s := h.session(c)
	rec, ok, err := s.StopRecording()
	if err != nil {
		fail(c, err)
		return
	}
	resp := RecordingResponse{State: s.View()}
	if ok {
		resp.Recording = &rec
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).Presets())
}

func (h *handlers) savePreset(c *gin.Context) {
	var req SavePresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s := h.session(c)
	p, ok, err := s.SavePreset(req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, PresetResponse{State: s.View()})
		return
	}
	c.JSON(http.StatusCreated, PresetResponse{Preset: &p, State: s.View()})
}

func (h *handlers) loadPreset(c *gin.Context) {
	s := h.session(c)
	if err := s.LoadPreset(domain.PresetID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) getArtifact(c *gin.Context) {
	clip, ok := h.artifacts.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact_not_found"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, clip.MimeType, clip.Data)
}
