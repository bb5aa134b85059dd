// Package server exposes the slicer over HTTP. A client posts a mesh or a
// job script and receives the G-code program as a streamed text response.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/kernel"
	"github.com/chazu/cncslice/pkg/layer"
	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/mesh"
	"github.com/chazu/cncslice/pkg/meshio"
	"github.com/chazu/cncslice/pkg/pipeline"
	"github.com/chazu/cncslice/pkg/script"
	"github.com/chazu/cncslice/pkg/tessellate"
	"github.com/chazu/cncslice/pkg/toolpath"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Request body types accepted by the slicing endpoint.
const (
	MIMEJSON   = echo.MIMEApplicationJSON
	MIMESTL    = "model/stl"
	MIME3MF    = "model/3mf"
	MIMEScript = "text/x-lisp"
	MIMEGCode  = "text/x-gcode"
)

// HeaderJobID carries the job id of a slicing response.
const HeaderJobID = "X-Job-Id"

// Options configures a Server.
type Options struct {
	// Base is the configuration requests start from.
	Base config.Config
	// Kernel tessellates job scripts. Script requests are rejected when nil.
	Kernel kernel.Kernel
	// BodyLimit caps request bodies, in the echo size syntax ("32M").
	BodyLimit string
}

// Server is the HTTP front end of the slicer.
type Server struct {
	e    *echo.Echo
	opts Options
}

// New builds a server with its routes installed.
func New(opts Options) *Server {
	if opts.BodyLimit == "" {
		opts.BodyLimit = "64M"
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &Server{e: e, opts: opts}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log := logging.Logger()
			if v.Error != nil {
				log.Warn("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "err", v.Error)
				return nil
			}
			log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	e.POST("/v1/slice", s.slice)
	e.POST("/v1/layers", s.layers)
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	logging.Logger().Info("listening", "addr", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for running requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// job reads the request into a mesh and the configuration to slice it
// with: the server base, then options set by a job script, then query
// parameters.
func (s *Server) job(c echo.Context) (*mesh.Mesh, config.Config, error) {
	cfg := s.opts.Base
	ctype, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		ctype = MIMESTL
	}
	body := c.Request().Body

	var m *mesh.Mesh
	switch ctype {
	case MIMEJSON:
		var km kernel.Mesh
		if err := c.Bind(&km); err != nil {
			return nil, cfg, err
		}
		m, err = km.Build()
	case MIMESTL, "application/sla", "application/vnd.ms-pki.stl", echo.MIMEOctetStream:
		m, err = meshio.Read(body, meshio.FormatSTL)
	case MIME3MF:
		m, err = meshio.Read(body, meshio.Format3MF)
	case MIMEScript:
		m, cfg, err = s.script(c.Request().Context(), body, cfg)
	default:
		return nil, cfg, echo.NewHTTPError(http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported body type %q", ctype))
	}
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, cfg, err
		}
		return nil, cfg, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
	}

	for key, values := range c.QueryParams() {
		for _, v := range values {
			if err := cfg.Set(key, v); err != nil {
				return nil, cfg, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
			}
		}
	}
	if err := pipeline.Check(m, cfg); err != nil {
		return nil, cfg, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return m, cfg, nil
}

func (s *Server) script(ctx context.Context, body io.Reader, cfg config.Config) (*mesh.Mesh, config.Config, error) {
	if s.opts.Kernel == nil {
		return nil, cfg, echo.NewHTTPError(http.StatusUnsupportedMediaType, "job scripts are not enabled")
	}
	src, err := io.ReadAll(body)
	if err != nil {
		return nil, cfg, err
	}
	job, evalErrs, err := script.NewEngine().Evaluate(ctx, string(src), cfg)
	if err != nil {
		return nil, cfg, err
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, ee := range evalErrs {
			errs[i] = ee
		}
		return nil, cfg, errors.Join(errs...)
	}
	m, err := tessellate.Tessellate(job.Graph, s.opts.Kernel)
	if err != nil {
		return nil, cfg, err
	}
	return m, job.Config, nil
}

// slice streams the G-code program. Layers are flushed as they are
// emitted; if the client goes away the run stops after the current layer.
func (s *Server) slice(c echo.Context) error {
	m, cfg, err := s.job(c)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, MIMEGCode+"; charset=utf-8")
	res.Header().Set(HeaderJobID, id)
	res.WriteHeader(http.StatusOK)

	start := time.Now()
	result, err := pipeline.Run(c.Request().Context(), m, cfg, res, pipeline.Options{
		JobID: id,
		OnLayer: func(layer.Layer, toolpath.Toolpath) {
			res.Flush()
		},
	})
	if err != nil {
		// The status line is gone; the program already ends with its
		// footer, so the error is only logged.
		logging.Logger().Warn("slicing stopped", "job", id, "err", err)
		return nil
	}
	logging.Logger().Info("sliced", "job", id, "layers", result.Layers,
		"warnings", len(result.Warnings), "elapsed", time.Since(start))
	return nil
}

// LayerInfo describes one computed layer.
type LayerInfo struct {
	Index    int      `json:"index"`
	Z        float64  `json:"z"`
	Contours int      `json:"contours"`
	Holes    int      `json:"holes"`
	Paths    int      `json:"paths"`
	Hatches  int      `json:"hatches"`
	Warnings []string `json:"warnings,omitempty"`
}

// layers slices without planning and reports per-layer statistics as JSON.
func (s *Server) layers(c echo.Context) error {
	m, cfg, err := s.job(c)
	if err != nil {
		return err
	}
	ls, err := pipeline.Slice(c.Request().Context(), m, cfg)
	if err != nil {
		return err
	}
	out := make([]LayerInfo, len(ls))
	for i, l := range ls {
		info := LayerInfo{Index: l.Index, Z: l.Z, Contours: len(l.Contours), Paths: len(l.Paths), Hatches: len(l.Hatches)}
		for _, ct := range l.Contours {
			if ct.IsHole() {
				info.Holes++
			}
		}
		for _, w := range l.Warnings {
			info.Warnings = append(info.Warnings, w.Error())
		}
		out[i] = info
	}
	return c.JSON(http.StatusOK, out)
}
