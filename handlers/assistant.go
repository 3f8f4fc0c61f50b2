package handlers

import (
	"net/http"
	"time"

	"meetsync/models"
	"meetsync/services/booking"
	"meetsync/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssistantHandler exposes the conversational booking engine over HTTP.
// It owns the session lifecycle: load state, advance one turn, save or
// discard.
type AssistantHandler struct {
	Engine   *booking.Engine
	Sessions booking.SessionStore
}

func NewAssistantHandler(engine *booking.Engine, sessions booking.SessionStore) *AssistantHandler {
	return &AssistantHandler{Engine: engine, Sessions: sessions}
}

// Chat handles one conversation turn.
func (h *AssistantHandler) Chat(c *gin.Context) {
	logger := utils.GetLogger()

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if req.Message == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", "message is required")
		return
	}

	ctx := c.Request.Context()

	var state *models.ConversationState
	if req.SessionID != "" {
		loaded, err := h.Sessions.Get(ctx, req.SessionID)
		if err != nil {
			logger.Error("failed to load session", zap.String("sessionID", req.SessionID), zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "Session error", "could not load conversation")
			return
		}
		state = loaded
	}
	if state == nil {
		state = &models.ConversationState{
			SessionID: uuid.New().String(),
			Stage:     models.StageQualifying,
			CreatedAt: time.Now(),
		}
	}

	resp, err := h.Engine.Advance(ctx, state, req.Message)
	if err != nil {
		logger.Error("conversation advance failed", zap.String("sessionID", state.SessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Assistant error", "could not process your message")
		return
	}

	// Terminal states close the conversation; everything else is kept
	// for the next turn.
	if state.Stage.Terminal() {
		if err := h.Sessions.Clear(ctx, state.SessionID); err != nil {
			logger.Warn("failed to clear finished session", zap.Error(err))
		}
	} else {
		if err := h.Sessions.Save(ctx, state); err != nil {
			logger.Error("failed to save session", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "Session error", "could not save conversation")
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

// AbandonSession explicitly closes a conversation with no side effects.
func (h *AssistantHandler) AbandonSession(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", "sessionID is required")
		return
	}
	if err := h.Sessions.Clear(c.Request.Context(), sessionID); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Session error", "could not close conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "abandoned", "session_id": sessionID})
}
