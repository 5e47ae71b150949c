// Package handlers routes mixer requests arriving over the daemon's
// WebSocket connections to the volume controller.
package handlers

import (
	"encoding/json"
	"math"

	"github.com/vmorsell/app-mixer/internal/ratelimit"
	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

const (
	ActionGetSessions = "getSessions"
	ActionSetVolume   = "setVolume"
	ActionSetMute     = "setMute"
	ActionToggleMute  = "toggleMute"

	MaxRequestBodySize = 1024

	ErrInvalidPayload   = "invalid payload"
	ErrMissingID        = "missing session id"
	ErrMissingVolume    = "invalid payload, expected {\"volume\": number}"
	ErrMissingMuted     = "invalid payload, expected {\"muted\": bool}"
	ErrVolumeOutOfRange = "volume must be between 0 and 100"
	ErrInvalidAction    = "invalid action"
	ErrRateLimited      = "rate limit exceeded"
	ErrMessageTooLarge  = "request body too large"
)

// Mixer is the subset of volume.Controller the handler drives.
type Mixer interface {
	ListSessions() []model.AudioSession
	SetVolume(id string, percent float64) bool
	SetMute(id string, muted bool) bool
	ToggleMute(id string) (muted bool, ok bool)
}

// SessionCache supplies the most recently polled session list.
type SessionCache interface {
	Snapshot() ([]model.AudioSession, bool)
}

type Handler struct {
	logger      *zap.Logger
	mixer       Mixer
	cache       SessionCache
	mutationsRL *ratelimit.RateLimiter
}

// NewHandler builds a Handler. cache may be nil, in which case getSessions
// always queries the mixer.
func NewHandler(logger *zap.Logger, mixer Mixer, cache SessionCache, limiter *ratelimit.RateLimiter) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewRateLimiter(ratelimit.DefaultMutationRateLimit, ratelimit.DefaultWindowSize)
	}
	return &Handler{
		logger:      logger,
		mixer:       mixer,
		cache:       cache,
		mutationsRL: limiter,
	}
}

type request struct {
	Action string   `json:"action"`
	ID     string   `json:"id"`
	Volume *float64 `json:"volume"`
	Muted  *bool    `json:"muted"`
}

// HandleMessage processes one message from clientID and returns the reply to
// send back.
func (h *Handler) HandleMessage(clientID string, body []byte) any {
	if len(body) > MaxRequestBodySize {
		return errorResponse(ErrMessageTooLarge)
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(ErrInvalidPayload)
	}

	switch req.Action {
	case ActionGetSessions:
		return h.handleGetSessions()
	case ActionSetVolume, ActionSetMute, ActionToggleMute:
		if req.ID == "" {
			return errorResponse(ErrMissingID)
		}
		if !h.mutationsRL.Allow(clientID) {
			h.logger.Warn("rate limited", zap.String("clientID", clientID), zap.String("action", req.Action))
			return errorResponse(ErrRateLimited)
		}
	default:
		h.logger.Warn("unknown action", zap.String("action", req.Action))
		return errorResponse(ErrInvalidAction)
	}

	switch req.Action {
	case ActionSetVolume:
		return h.handleSetVolume(req)
	case ActionSetMute:
		return h.handleSetMute(req)
	default:
		return h.handleToggleMute(req)
	}
}

// Forget drops per-client state once the client has gone.
func (h *Handler) Forget(clientID string) {
	h.mutationsRL.Forget(clientID)
}

func (h *Handler) handleGetSessions() model.SessionsMessage {
	if h.cache != nil {
		if sessions, ok := h.cache.Snapshot(); ok {
			return sessionsResponse(sessions)
		}
	}
	return sessionsResponse(h.mixer.ListSessions())
}

func (h *Handler) handleSetVolume(req request) any {
	if req.Volume == nil {
		return errorResponse(ErrMissingVolume)
	}
	if !validVolume(*req.Volume) {
		return errorResponse(ErrVolumeOutOfRange)
	}

	ok := h.mixer.SetVolume(req.ID, *req.Volume)
	return model.ResultMessage{
		Type:   model.MessageTypeResult,
		Action: ActionSetVolume,
		ID:     req.ID,
		OK:     ok,
	}
}

func (h *Handler) handleSetMute(req request) any {
	if req.Muted == nil {
		return errorResponse(ErrMissingMuted)
	}

	ok := h.mixer.SetMute(req.ID, *req.Muted)
	res := model.ResultMessage{
		Type:   model.MessageTypeResult,
		Action: ActionSetMute,
		ID:     req.ID,
		OK:     ok,
	}
	if ok {
		res.Muted = req.Muted
	}
	return res
}

func (h *Handler) handleToggleMute(req request) any {
	muted, ok := h.mixer.ToggleMute(req.ID)
	res := model.ResultMessage{
		Type:   model.MessageTypeResult,
		Action: ActionToggleMute,
		ID:     req.ID,
		OK:     ok,
	}
	if ok {
		res.Muted = &muted
	}
	return res
}

func validVolume(volume float64) bool {
	return !math.IsNaN(volume) && volume >= session.VolumeMin && volume <= session.VolumeMax
}

func sessionsResponse(sessions []model.AudioSession) model.SessionsMessage {
	if sessions == nil {
		sessions = []model.AudioSession{}
	}
	return model.SessionsMessage{
		Type:     model.MessageTypeSessions,
		Sessions: sessions,
	}
}

func errorResponse(message string) model.ErrorMessage {
	return model.ErrorMessage{
		Type:  model.MessageTypeError,
		Error: message,
	}
}
