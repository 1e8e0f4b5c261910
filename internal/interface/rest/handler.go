package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"

	pdr "github.com/usnistgov/oar-pdr-sub001"
	"github.com/usnistgov/oar-pdr-sub001/internal/config"
	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
	"github.com/usnistgov/oar-pdr-sub001/internal/interface/rest/middleware"
	"github.com/usnistgov/oar-pdr-sub001/internal/interface/rest/presenter"
	"github.com/usnistgov/oar-pdr-sub001/internal/service"
	"github.com/usnistgov/oar-pdr-sub001/internal/usecase"
)

// RealtimeFeed bridges a websocket session's subscription requests to a
// stream of draft update events.
type RealtimeFeed interface {
	Realtime(ctx context.Context, input <-chan []string, output chan<- domain.UpdateEvent)
}

type Handler struct {
	config     config.Config
	draft      *usecase.DraftUsecase
	permission *usecase.PermissionUsecase
	auth       *service.AuthService
	signal     RealtimeFeed
}

func NewHandler(
	config config.Config,
	draft *usecase.DraftUsecase,
	permission *usecase.PermissionUsecase,
	auth *service.AuthService,
	signal RealtimeFeed,
) *Handler {
	return &Handler{
		config:     config,
		draft:      draft,
		permission: permission,
		auth:       auth,
		signal:     signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/draft/:id", h.handleGetDraft)
	e.PATCH("/api/draft/:id", h.handlePatchDraft)
	e.DELETE("/api/draft/:id", h.handleDiscardDraft)
	e.PUT("/api/savedrecord/:id", h.handleSaveDraft)
	e.GET("/auth/_perm/:id", h.handlePermission)
	e.GET("/saml/login", h.handleLogin)
	e.GET("/realtime", h.handleRealtime)
}

// requireEditToken validates the bearer token against the requested resource
// and returns the user it was minted for.
func (h *Handler) requireEditToken(c echo.Context, resourceID string) (string, error) {
	ctx := c.Request().Context()

	token := middleware.RequesterToken(ctx)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return h.auth.ValidateEditToken(ctx, token, resourceID)
}

func (h *Handler) handleGetDraft(c echo.Context) error {
	ctx := c.Request().Context()
	resourceID := c.Param("id")

	if _, err := h.requireEditToken(c, resourceID); err != nil {
		return presenter.Unauthorized(c, "invalid edit token")
	}

	record, err := h.draft.Get(ctx, resourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "draft not found")
		}
		return presenter.InternalError(c, err)
	}

	body, err := json.Marshal(record)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	etag := fmt.Sprintf(`W/"%016x"`, xxh3.Hash(body))
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (h *Handler) handlePatchDraft(c echo.Context) error {
	ctx := c.Request().Context()
	resourceID := c.Param("id")

	userID, err := h.requireEditToken(c, resourceID)
	if err != nil {
		return presenter.Unauthorized(c, "invalid edit token")
	}

	// decode straight from the body: echo's Bind would also fill path
	// parameters into the map
	var patch pdr.ResourceRecord
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return presenter.BadRequest(c, err)
	}

	var record pdr.ResourceRecord
	if status, ok := patch[pdr.KeyEditStatus].(string); ok && status == pdr.EditStatusDone {
		record, err = h.draft.Done(ctx, resourceID)
	} else {
		record, err = h.draft.Patch(ctx, resourceID, userID, patch)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return presenter.NotFound(c, "draft not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return presenter.BadRequest(c, err)
		case errors.Is(err, domain.ErrSessionClosed):
			return presenter.Conflict(c, "editing session already closed")
		default:
			return presenter.InternalError(c, err)
		}
	}

	return presenter.OK(c, record)
}

func (h *Handler) handleDiscardDraft(c echo.Context) error {
	ctx := c.Request().Context()
	resourceID := c.Param("id")

	if _, err := h.requireEditToken(c, resourceID); err != nil {
		return presenter.Unauthorized(c, "invalid edit token")
	}

	record, err := h.draft.Discard(ctx, resourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "draft not found")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, record)
}

func (h *Handler) handleSaveDraft(c echo.Context) error {
	ctx := c.Request().Context()
	resourceID := c.Param("id")

	if _, err := h.requireEditToken(c, resourceID); err != nil {
		return presenter.Unauthorized(c, "invalid edit token")
	}

	record, err := h.draft.Commit(ctx, resourceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return presenter.NotFound(c, "draft not found")
		case errors.Is(err, domain.ErrSessionClosed):
			return presenter.Conflict(c, "editing session already closed")
		default:
			return presenter.InternalError(c, err)
		}
	}

	return presenter.OK(c, record)
}

func (h *Handler) handlePermission(c echo.Context) error {
	ctx := c.Request().Context()
	resourceID := c.Param("id")

	cred, err := h.permission.Resolve(ctx, middleware.RequesterID(ctx), resourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "resource not tracked")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, cred)
}

// handleLogin hands the browser to the configured identity provider, or
// bounces straight back to redirectTo when none is configured. Deployments
// front this route with the real SSO gateway.
func (h *Handler) handleLogin(c echo.Context) error {
	redirectTo := c.QueryParam("redirectTo")
	if redirectTo == "" {
		return presenter.BadRequestMessage(c, "redirectTo is required")
	}
	if _, err := url.Parse(redirectTo); err != nil {
		return presenter.BadRequest(c, err)
	}
	if login := h.config.Service.LoginURL; login != "" {
		return c.Redirect(http.StatusFound, login+"?redirectTo="+url.QueryEscape(redirectTo))
	}
	return c.Redirect(http.StatusFound, redirectTo)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type      string   `json:"type"`
	Resources []string `json:"resources"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.UpdateEvent)

	go h.signal.Realtime(ctx, input, output)

	// the reader goroutine owns input and quit: only it closes them, and
	// its sends bail out on ctx so a write-side exit can never strand it
	quit := make(chan struct{})

	go func() {
		defer close(quit)
		defer close(input)
		for {
			var req realtimeRequest
			if err := ws.ReadJSON(&req); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Resources:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Resources),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			if err := ws.WriteJSON(event); err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
