package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const maxSnapshotBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type ingestResponse struct {
	UIDBase string `json:"uid_base"`
}

type statesResponse struct {
	Device domain.DeviceSummary `json:"device"`
	States []domain.EntityState `json:"states"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api/v1")
	api.POST("/snapshot", s.IngestSnapshotHandler, middleware.BodyLimit("1M"))
	api.GET("/devices", s.DevicesHandler)
	api.GET("/devices/:uid/states", s.DeviceStatesHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.requestTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) IngestSnapshotHandler(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSnapshotBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.IngestSnapshotRequest{
		Source:  domain.SNAPSHOT_SOURCE_HTTP,
		Payload: payload,
	}, s.requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.IngestSnapshotResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		status := http.StatusInternalServerError
		if errors.Is(response.GetResponseError(), domain.ErrInvalidSnapshot) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, ingestResponse{UIDBase: response.UIDBase})
}

func (s *Server) DevicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDevicesRequest{}, s.requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.GetDevicesResponse)
	if !ok || response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not list devices"})
	}
	return c.JSON(http.StatusOK, response.Devices)
}

func (s *Server) DeviceStatesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDeviceStatesRequest{
		UIDBase: c.Param("uid"),
	}, s.requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.GetDeviceStatesResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		if errors.Is(response.GetResponseError(), domain.ErrUnknownDevice) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: response.GetResponseError().Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, statesResponse{
		Device: response.Device,
		States: response.States,
	})
}
