package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/service"
	"github.com/berfenger/receiptpanel/internal/export"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const XLSX_CONTENT_TYPE = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type searchBody struct {
	Query    string `json:"query"`
	Building string `json:"building"`
	Street   string `json:"street"`
}

type dateRangeBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type generateBody struct {
	Filename       string `json:"filename"`
	FilenamePrefix string `json:"filename_prefix"`
}

type healthBody struct {
	Status  string `json:"status"`
	Panel   string `json:"panel,omitempty"`
	Version string `json:"version"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.POST("/reload", s.ReloadHandler)

	api.GET("/panel", s.PanelStateHandler)
	api.POST("/panel/search", s.SearchHandler)
	api.POST("/panel/selection/all", s.SelectAllHandler)
	api.DELETE("/panel/selection", s.ClearSelectionHandler)
	api.POST("/panel/selection/:base_name", s.ToggleSelectionHandler)
	api.PUT("/panel/date-range", s.DateRangeHandler)
	api.PUT("/panel/date-range/preset", s.DatePresetHandler)

	api.GET("/users", s.UsersHandler)
	api.GET("/users/export.xlsx", s.UsersExportHandler)
	api.GET("/users/:base_name/stats", s.UserStatsHandler)

	api.POST("/generate", s.GenerateHandler)
	api.GET("/status", s.StatusHandler)

	api.GET("/reports", s.ReportsHandler)
	api.POST("/reports/refresh", s.RefreshReportsHandler)
	api.DELETE("/reports/:filename", s.DeleteReportHandler)

	api.GET("/history", s.HistoryHandler)

	return e
}

// ask sends msg through the master and unwraps the typed response.
func ask[T domain.ActorResponse](s *Server, msg any) (T, error) {
	var zero T
	res, err := s.rootContext.RequestFuture(s.masterActor, msg, s.requestTimeout).Result()
	if err != nil {
		return zero, err
	}
	resp, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected response %T", res)
	}
	if resp.HasResponseError() {
		return resp, resp.GetResponseError()
	}
	return resp, nil
}

func (s *Server) httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptySelection):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnknownUser):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrInvalidPreset):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, actor.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "panel did not answer in time")
	}
	s.logger.Warn("server: request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthBody{Status: "FAIL", Version: versioninfo.Short()})
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.JSON(http.StatusOK, healthBody{Status: "OK", Panel: response.State, Version: versioninfo.Short()})
	} else if ok {
		return c.JSON(http.StatusServiceUnavailable, healthBody{Status: "FAIL", Panel: response.State, Version: versioninfo.Short()})
	}
	return c.JSON(http.StatusServiceUnavailable, healthBody{Status: "FAIL", Version: versioninfo.Short()})
}

func (s *Server) ReloadHandler(c echo.Context) error {
	resp, err := ask[domain.LifecycleResponse](s, domain.ReloadRequest{})
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]domain.Lifecycle{"lifecycle": resp.Lifecycle})
}

func (s *Server) respondView(c echo.Context, msg domain.PanelRequest) error {
	resp, err := ask[domain.PanelStateResponse](s, msg)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, resp.View)
}

func (s *Server) PanelStateHandler(c echo.Context) error {
	return s.respondView(c, domain.GetPanelStateRequest{})
}

func (s *Server) SearchHandler(c echo.Context) error {
	var body searchBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	return s.respondView(c, domain.SearchRequest{Query: body.Query, Building: body.Building, Street: body.Street})
}

func (s *Server) ToggleSelectionHandler(c echo.Context) error {
	return s.respondView(c, domain.ToggleSelectionRequest{BaseName: c.Param("base_name")})
}

func (s *Server) SelectAllHandler(c echo.Context) error {
	return s.respondView(c, domain.SelectAllRequest{})
}

func (s *Server) ClearSelectionHandler(c echo.Context) error {
	return s.respondView(c, domain.ClearSelectionRequest{})
}

func (s *Server) DateRangeHandler(c echo.Context) error {
	var body dateRangeBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	return s.respondView(c, domain.SetDateRangeRequest{Start: body.Start, End: body.End})
}

func (s *Server) DatePresetHandler(c echo.Context) error {
	var body domain.Preset
	if err := c.Bind(&body); err != nil {
		return err
	}
	return s.respondView(c, domain.SetDatePresetRequest{Preset: body})
}

func (s *Server) UsersHandler(c echo.Context) error {
	resp, err := ask[domain.GetUsersResponse](s, domain.GetUsersRequest{})
	if err != nil {
		return s.httpError(err)
	}
	users := resp.Users
	if users == nil {
		users = []domain.UserRecord{}
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) UsersExportHandler(c echo.Context) error {
	resp, err := ask[domain.GetUsersResponse](s, domain.GetUsersRequest{})
	if err != nil {
		return s.httpError(err)
	}
	data, err := export.UsersWorkbook(resp.Users)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="users.xlsx"`)
	return c.Blob(http.StatusOK, XLSX_CONTENT_TYPE, data)
}

func (s *Server) UserStatsHandler(c echo.Context) error {
	resp, err := ask[domain.GetUserStatsResponse](s, domain.GetUserStatsRequest{BaseName: c.Param("base_name")})
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, resp.Stats)
}

func (s *Server) GenerateHandler(c echo.Context) error {
	var body generateBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	resp, err := ask[domain.GenerateResponse](s, domain.GenerateRequest{Filename: body.Filename, FilenamePrefix: body.FilenamePrefix})
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusAccepted, resp.Request)
}

func (s *Server) StatusHandler(c echo.Context) error {
	resp, err := ask[domain.GetStatusResponse](s, domain.GetStatusRequest{})
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, resp.Status)
}

func (s *Server) respondFiles(c echo.Context, files []string) error {
	if files == nil {
		files = []string{}
	}
	return c.JSON(http.StatusOK, files)
}

func (s *Server) ReportsHandler(c echo.Context) error {
	resp, err := ask[domain.ListReportsResponse](s, domain.ListReportsRequest{})
	if err != nil {
		return s.httpError(err)
	}
	return s.respondFiles(c, resp.Files)
}

func (s *Server) RefreshReportsHandler(c echo.Context) error {
	resp, err := ask[domain.ListReportsResponse](s, domain.RefreshReportsRequest{})
	if err != nil {
		return s.httpError(err)
	}
	return s.respondFiles(c, resp.Files)
}

func (s *Server) DeleteReportHandler(c echo.Context) error {
	resp, err := ask[domain.DeleteReportResponse](s, domain.DeleteReportRequest{Filename: c.Param("filename")})
	if err != nil {
		return s.httpError(err)
	}
	return s.respondFiles(c, resp.Files)
}

func (s *Server) HistoryHandler(c echo.Context) error {
	limit := 0
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	resp, err := ask[domain.GetHistoryResponse](s, domain.GetHistoryRequest{Limit: limit})
	if err != nil {
		return s.httpError(err)
	}
	entries := resp.Entries
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
