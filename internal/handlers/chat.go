package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loganlanou/aigifts/internal/planner"
	"github.com/loganlanou/aigifts/internal/themes"
)

// Planner plans a transformation from a conversation.
type Planner interface {
	Reply(ctx context.Context, theme themes.Theme, messages []planner.Message) (*planner.Plan, error)
}

type ChatHandler struct {
	planner Planner
}

func NewChatHandler(p Planner) *ChatHandler {
	return &ChatHandler{planner: p}
}

type ChatRequest struct {
	Theme    string            `json:"theme"`
	Messages []planner.Message `json:"messages"`
}

func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	theme, err := themes.Parse(req.Theme)
	if err != nil {
		return err
	}

	plan, err := h.planner.Reply(c.Request().Context(), theme, req.Messages)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}
