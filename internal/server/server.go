// Package server exposes a remote.DocumentStore over HTTP.
//
// Routes:
//
//	POST   /v1/:kind?parent=<id>   insert, body is the entity JSON
//	PATCH  /v1/:kind/:id           merge updates (null deletes a field)
//	DELETE /v1/:kind/:id
//	GET    /v1/:kind?parent=<id>   list documents under parent
//	GET    /healthz
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

const maxBodySize = 1 << 20

// WireDocument is the JSON form of a remote.Document.
type WireDocument struct {
	ID       string                 `json:"id"`
	ParentID string                 `json:"parentId,omitempty"`
	Body     sonic.NoCopyRawMessage `json:"body"`
}

// Server serves one store.
type Server struct {
	echo  *echo.Echo
	store remote.DocumentStore
	log   *zap.Logger
}

// New builds the echo instance and registers routes.
func New(store remote.DocumentStore, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	s := &Server{echo: e, store: store, log: log}
	e.Use(s.requestLog)
	e.GET("/healthz", s.healthz)
	g := e.Group("/v1/:kind", validKind)
	g.POST("", s.insert)
	g.GET("", s.list)
	g.PATCH("/:id", s.patch)
	g.DELETE("/:id", s.remove)
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("serving document store", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}
}

func validKind(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !types.Kind(c.Param("kind")).IsValid() {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown kind %q", c.Param("kind")))
		}
		return next(c)
	}
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) insert(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	var probe map[string]any
	if err := sonic.ConfigStd.Unmarshal(body, &probe); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object")
	}
	kind := types.Kind(c.Param("kind"))
	doc, err := s.store.Insert(c.Request().Context(), kind, c.QueryParam("parent"), body)
	if err != nil {
		return s.storeError(err)
	}
	return c.JSON(http.StatusCreated, WireDocument{ID: doc.ID, ParentID: doc.ParentID, Body: doc.Body})
}

func (s *Server) patch(c echo.Context) error {
	updates := map[string]any{}
	if err := c.Echo().JSONSerializer.Deserialize(c, &updates); err != nil {
		return err
	}
	kind := types.Kind(c.Param("kind"))
	if err := s.store.Patch(c.Request().Context(), kind, c.Param("id"), updates); err != nil {
		return s.storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) remove(c echo.Context) error {
	kind := types.Kind(c.Param("kind"))
	if err := s.store.Remove(c.Request().Context(), kind, c.Param("id")); err != nil {
		return s.storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) list(c echo.Context) error {
	kind := types.Kind(c.Param("kind"))
	docs, err := s.store.List(c.Request().Context(), kind, c.QueryParam("parent"))
	if err != nil {
		return s.storeError(err)
	}
	out := make([]WireDocument, len(docs))
	for i, d := range docs {
		out[i] = WireDocument{ID: d.ID, ParentID: d.ParentID, Body: d.Body}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) storeError(err error) error {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case remote.IsTransient(err):
		s.log.Warn("transient store failure", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("store failure", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// sonicSerializer swaps echo's encoding/json for sonic.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	if err := dec.Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return nil
}
