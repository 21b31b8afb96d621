// Package server exposes the configured crosswalks over HTTP.
//
//	GET  /crosswalks              list crosswalks
//	GET  /items/:id/:crosswalk    disseminate one record
//	POST /export/:crosswalk       disseminate {"ids": [...]} through the multiple items template
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lehigh-university-libraries/refer/crosswalk"
	"github.com/lehigh-university-libraries/refer/item"
)

const defaultMIMEType = "text/plain; charset=utf-8"

var errUnknownCrosswalk = errors.New("unknown crosswalk")

// CrosswalkInfo describes a crosswalk in listings.
type CrosswalkInfo struct {
	Name          string `json:"name"`
	MIMEType      string `json:"mime_type,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	MultipleItems bool   `json:"multiple_items"`
}

// ExportRequest is the body of an export request.
type ExportRequest struct {
	IDs []string `json:"ids"`
}

// Server serves disseminations of the records of a store.
type Server struct {
	echo   *echo.Echo
	logger *slog.Logger
}

// New creates a server with its routes registered.
func New(registry *crosswalk.Registry, store item.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				logger.Warn("request failed", append(attrs, "err", v.Error)...)
				return nil
			}
			logger.Debug("request", attrs...)
			return nil
		},
	}))

	e.GET("/crosswalks", ListCrosswalksHandler(registry))
	e.GET("/items/:id/:crosswalk", DisseminateHandler(registry, store))
	e.POST("/export/:crosswalk", ExportHandler(registry, store))

	return &Server{echo: e, logger: logger}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// ListCrosswalksHandler lists the registered crosswalks.
func ListCrosswalksHandler(registry *crosswalk.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		all := registry.All()
		infos := make([]CrosswalkInfo, 0, len(all))
		for _, cw := range all {
			infos = append(infos, CrosswalkInfo{
				Name:          cw.Name(),
				MIMEType:      cw.MIMEType(),
				FileName:      cw.FileName(),
				MultipleItems: cw.SupportsMultipleItems(),
			})
		}
		return c.JSON(http.StatusOK, infos)
	}
}

// DisseminateHandler renders one record.
func DisseminateHandler(registry *crosswalk.Registry, store item.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		cw, ok := registry.Get(c.Param("crosswalk"))
		if !ok {
			return httpError(fmt.Errorf("%w: %s", errUnknownCrosswalk, c.Param("crosswalk")))
		}
		it, err := store.Find(ctx, c.Param("id"))
		if err != nil {
			return httpError(err)
		}

		var buf bytes.Buffer
		if err := cw.Disseminate(ctx, it, &buf); err != nil {
			return httpError(err)
		}
		return blob(c, cw, buf.Bytes())
	}
}

// ExportHandler renders the requested records through the multiple items
// template.
func ExportHandler(registry *crosswalk.Registry, store item.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		cw, ok := registry.Get(c.Param("crosswalk"))
		if !ok {
			return httpError(fmt.Errorf("%w: %s", errUnknownCrosswalk, c.Param("crosswalk")))
		}

		var req ExportRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if len(req.IDs) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "ids must not be empty")
		}

		var buf bytes.Buffer
		if err := cw.DisseminateAll(ctx, item.Lookup(ctx, store, req.IDs), &buf); err != nil {
			return httpError(err)
		}
		return blob(c, cw, buf.Bytes())
	}
}

func blob(c echo.Context, cw *crosswalk.Crosswalk, body []byte) error {
	mimeType := cw.MIMEType()
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	if name := cw.FileName(); name != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	}
	return c.Blob(http.StatusOK, mimeType, body)
}

// httpError maps dissemination errors to HTTP statuses.
func httpError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, item.ErrNotFound), errors.Is(err, errUnknownCrosswalk):
		status = http.StatusNotFound
	case errors.Is(err, crosswalk.ErrObjectNotSupported):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, crosswalk.ErrMultipleItemsUnsupported):
		status = http.StatusNotImplemented
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	return echo.NewHTTPError(status, message).SetInternal(err)
}
