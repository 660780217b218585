package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"dddkit/core"
	"dddkit/messagebus"
	"dddkit/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Error is the JSON body of a failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server dispatches HTTP requests into a messagebus.
type Server struct {
	bus    core.Messagebus
	echo   *echo.Echo
	logger *slog.Logger
}

// NewServer creates the gateway over the given messagebus. A nil logger
// falls back to slog.Default.
func NewServer(bus core.Messagebus, logger *slog.Logger) (*Server, error) {
	if bus == nil {
		return nil, errs.NewValueIsRequiredError("bus")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		bus:    bus,
		echo:   echo.New(),
		logger: logger.With("component", "gateway"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.GET("/health", s.health)
	s.echo.POST("/commands/:domain/:name", s.postCommand)
	s.echo.POST("/events/:domain/:name", s.postEvent)
	return s, nil
}

// Start serves HTTP on the given address until Shutdown is called.
func (s *Server) Start(address string) error {
	s.logger.Info("gateway listening", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("starting gateway: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing for tests and custom server setups.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "Healthy")
}

// postCommand builds a command from the URL and body, dispatches it and
// answers with the handler result.
func (s *Server) postCommand(c echo.Context) error {
	msg, err := s.buildMessage(c, core.CommandMessageType)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err)
	}

	ctx := c.Request().Context()
	future, err := s.bus.HandleMessage(ctx, msg, nil)
	if err != nil {
		return s.dispatchError(c, err)
	}

	result, err := future.Result(ctx)
	if err != nil {
		return s.fail(c, http.StatusUnprocessableEntity, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"reference": msg.Reference(),
		"result":    result,
	})
}

// postEvent dispatches an event and acknowledges it without waiting for the
// subscribed handlers.
func (s *Server) postEvent(c echo.Context) error {
	msg, err := s.buildMessage(c, core.EventMessageType)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err)
	}

	if _, err = s.bus.HandleMessage(c.Request().Context(), msg, nil); err != nil {
		return s.dispatchError(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"reference": msg.Reference(),
	})
}

func (s *Server) buildMessage(c echo.Context, messageType core.MessageType) (core.Message, error) {
	payload := core.Payload{}
	if c.Request().Body != nil && c.Request().ContentLength != 0 {
		if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decoding payload: %w", err)
		}
	}
	fullName := c.Param("domain") + "." + c.Param("name")
	return core.NewUniversalMessage(fullName, messageType, payload)
}

// dispatchError maps messagebus failures to HTTP statuses: unknown commands
// are 404, a bus that cannot accept messages is 409.
func (s *Server) dispatchError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return s.fail(c, http.StatusNotFound, err)
	case errors.Is(err, messagebus.ErrNotRunning), errors.Is(err, messagebus.ErrClosed):
		return s.fail(c, http.StatusConflict, err)
	case errors.Is(err, errs.ErrValueIsInvalid):
		return s.fail(c, http.StatusBadRequest, err)
	default:
		s.logger.Error("dispatching message failed",
			"path", c.Request().URL.Path,
			"error", err)
		return s.fail(c, http.StatusInternalServerError, err)
	}
}

func (s *Server) fail(c echo.Context, code int, err error) error {
	return c.JSON(code, Error{Code: code, Message: err.Error()})
}
