// Package server exposes the voice client over HTTP for debugging and
// local control.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/glizzus/voicelink/internal/worker"
)

// Controller is the part of voice.Client the API drives.
type Controller interface {
	worker.Controller
	DebugStatus() voice.Status
}

var _ Controller = (*voice.Client)(nil)

type API struct {
	controller  Controller
	joinTimeout time.Duration
}

func NewAPI(controller Controller, joinTimeout time.Duration) *API {
	return &API{controller: controller, joinTimeout: joinTimeout}
}

type JoinRequest struct {
	GuildID   string `json:"guild_id" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
}

type LeaveRequest struct {
	GuildID string `json:"guild_id" binding:"required"`
}

type PlayRequest struct {
	Source string `json:"source" binding:"required"`
	Mode   string `json:"mode"`
}

type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// CommandResponse is returned by every control endpoint.
type CommandResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func statusFor(err error) int {
	var notFound *voice.ModeNotFoundError
	switch {
	case errors.Is(err, worker.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, voice.ErrNotConnected), errors.Is(err, voice.ErrConnectInProgress), errors.Is(err, voice.ErrConnectAbandoned):
		return http.StatusConflict
	case errors.Is(err, voice.ErrClientClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (a *API) execute(ctx context.Context, c *gin.Context, cmd worker.VoiceCommand) {
	if err := worker.Execute(ctx, a.controller, cmd); err != nil {
		slog.Warn("voice command failed", "action", cmd.Action, "guildID", cmd.GuildID, "error", err)
		c.JSON(statusFor(err), CommandResponse{Status: "error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, CommandResponse{Status: "ok"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, CommandResponse{Status: "error", Message: "invalid request: " + err.Error()})
}

func (a *API) Status(c *gin.Context) {
	c.JSON(http.StatusOK, a.controller.DebugStatus())
}

func (a *API) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if a.joinTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.joinTimeout)
		defer cancel()
	}

	a.execute(ctx, c, worker.VoiceCommand{
		Action:    worker.ActionJoin,
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
	})
}

func (a *API) Leave(c *gin.Context) {
	var req LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a.execute(c.Request.Context(), c, worker.VoiceCommand{Action: worker.ActionLeave, GuildID: req.GuildID})
}

func (a *API) Play(c *gin.Context) {
	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a.execute(c.Request.Context(), c, worker.VoiceCommand{Action: worker.ActionPlay, Source: req.Source, Mode: req.Mode})
}

func (a *API) Stop(c *gin.Context) {
	a.execute(c.Request.Context(), c, worker.VoiceCommand{Action: worker.ActionStop})
}

func (a *API) Mode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a.execute(c.Request.Context(), c, worker.VoiceCommand{Action: worker.ActionMode, Mode: req.Mode})
}
