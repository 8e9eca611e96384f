package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/batchelor-project/batchelor/dispatch"
	"github.com/batchelor-project/batchelor/store"
)

func (s *Server) handleAlive(c echo.Context) error {
	s.service.Alive()
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleFetchTask(c echo.Context) error {
	var req dispatch.FetchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := s.service.FetchTask(c.Request().Context(), c.Param("ns"), grantsFrom(c), req)
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return respond(c, http.StatusOK, resp)
}

func (s *Server) handleRunTask(c echo.Context) error {
	var req dispatch.RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := s.service.RunTask(c.Request().Context(), c.Param("ns"), grantsFrom(c), req)
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return respond(c, http.StatusOK, resp)
}

func (s *Server) handleSendSignal(c echo.Context) error {
	err := s.service.SendSignal(c.Request().Context(), c.Param("ns"), grantsFrom(c), c.Param("taskId"), c.Param("signal"))
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleGetTask(c echo.Context) error {
	status, err := s.service.GetTask(c.Request().Context(), c.Param("ns"), grantsFrom(c), c.Param("taskId"))
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	if status == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return respond(c, http.StatusOK, status)
}

func (s *Server) handleGetTasks(c echo.Context) error {
	filter, err := parseTaskFilter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	statuses, err := s.service.GetTasks(c.Request().Context(), c.Param("ns"), grantsFrom(c), filter)
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return respond(c, http.StatusOK, statuses)
}

func (s *Server) handleGetEventTypes(c echo.Context) error {
	eventTypes, err := s.service.GetEventTypes(c.Request().Context(), c.Param("ns"), grantsFrom(c))
	if err != nil {
		return echo.NewHTTPError(statusForError(err), err.Error())
	}
	return respond(c, http.StatusOK, eventTypes)
}

func parseTaskFilter(c echo.Context) (store.TaskFilter, error) {
	var filter store.TaskFilter
	if raw := c.QueryParam("state"); raw != "" {
		state := store.State(raw)
		filter.State = &state
	}
	if raw := c.QueryParam("nafter"); raw != "" {
		ts, err := parseUnixSeconds(raw)
		if err != nil {
			return filter, err
		}
		filter.NotAfter = &ts
	}
	if raw := c.QueryParam("nbefore"); raw != "" {
		ts, err := parseUnixSeconds(raw)
		if err != nil {
			return filter, err
		}
		filter.NotBefore = &ts
	}
	return filter, nil
}

func parseUnixSeconds(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
