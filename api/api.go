package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/labstack/echo/v4"
	"github.com/pbudner/argosbind/bind"
	"github.com/pbudner/argosbind/encoding"
	"github.com/pbudner/argosbind/paths"
	"github.com/pbudner/argosbind/stores"
	"go.uber.org/zap"
)

type JSON map[string]interface{}

type sentinel struct{ name string }

// missing marks absent paths in lookups
var missing = &sentinel{name: "missing"}

// defaultProperty is used when a record is created without naming one
const defaultProperty = "data"

type handlers struct {
	store *stores.RecordStore
	log   *zap.SugaredLogger
}

func RegisterApiHandlers(g *echo.Group, version, gitCommit string, recordStore *stores.RecordStore) {
	h := handlers{
		store: recordStore,
		log:   zap.L().Sugar().With("service", "api"),
	}

	build := gitCommit
	if len(build) > 6 {
		build = build[:6]
	}

	v1 := g.Group("/v1")
	v1.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, JSON{
			"message": "Hello, world! Welcome to ArgosBind API!",
			"version": version,
			"build":   build,
			"codec":   recordStore.Codec().Name(),
		})
	})

	v1.POST("/records", h.createRecord)
	v1.GET("/records/:id", h.listProperties)
	v1.GET("/records/:id/:prop", h.getProperty)
	v1.PATCH("/records/:id/:prop", h.mergeProperty)
	v1.DELETE("/records/:id/:prop", h.deleteProperty)
	v1.GET("/records/:id/:prop/*", h.getPath)
	v1.PUT("/records/:id/:prop/*", h.setPath)
	v1.DELETE("/records/:id/:prop/*", h.removePath)
}

func (h handlers) createRecord(c echo.Context) error {
	body, err := readMapping(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	prop := c.QueryParam("property")
	if prop == "" {
		prop = defaultProperty
	}

	id := h.store.NewID()
	d, err := h.store.Update(id, prop, func(d *bind.Data) error {
		return d.Act(body)
	})
	if err != nil {
		return h.fail(c, err)
	}

	h.log.Debugw("created record", "record", id, "property", prop)
	setETag(c, d)
	return c.JSON(http.StatusCreated, JSON{
		"id":       id,
		"property": prop,
		"data":     d.Value(),
	})
}

func (h handlers) listProperties(c echo.Context) error {
	props, err := h.store.Properties(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if len(props) == 0 {
		return errorResponse(c, http.StatusNotFound, stores.ErrPropertyNotFound)
	}

	return c.JSON(http.StatusOK, JSON{
		"id":         c.Param("id"),
		"properties": props,
		"count":      len(props),
	})
}

func (h handlers) getProperty(c echo.Context) error {
	d, err := h.store.Load(c.Param("id"), c.Param("prop"))
	if err != nil {
		return h.fail(c, err)
	}

	if notModified(c, d) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, d.Value())
}

func (h handlers) mergeProperty(c echo.Context) error {
	body, err := readMapping(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	d, err := h.store.Update(c.Param("id"), c.Param("prop"), func(d *bind.Data) error {
		return d.Push(body)
	})
	if err != nil {
		return h.fail(c, err)
	}

	setETag(c, d)
	return c.JSON(http.StatusOK, d.Value())
}

func (h handlers) deleteProperty(c echo.Context) error {
	if err := h.store.Delete(c.Param("id"), c.Param("prop")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h handlers) getPath(c echo.Context) error {
	d, err := h.store.Load(c.Param("id"), c.Param("prop"))
	if err != nil {
		return h.fail(c, err)
	}

	path := pathParam(c)
	v, err := d.Get(path, missing)
	if err != nil {
		return h.fail(c, err)
	}
	if v == missing {
		return errorResponse(c, http.StatusNotFound, fmt.Errorf("path %q does not exist", path))
	}

	setETag(c, d)
	return c.JSON(http.StatusOK, JSON{
		"path":  path,
		"value": v,
	})
}

func (h handlers) setPath(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if !encoding.JSON.IsEncoded(string(raw)) {
		return errorResponse(c, http.StatusBadRequest, errors.New("request body is not valid json"))
	}
	value, _, err := encoding.JSON.Decode(string(raw))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	d, err := h.store.Update(c.Param("id"), c.Param("prop"), func(d *bind.Data) error {
		return d.Set(pathParam(c), value)
	})
	if err != nil {
		return h.fail(c, err)
	}

	setETag(c, d)
	return c.JSON(http.StatusOK, d.Value())
}

func (h handlers) removePath(c echo.Context) error {
	d, err := h.store.UpdateExisting(c.Param("id"), c.Param("prop"), func(d *bind.Data) error {
		return d.Remove(pathParam(c))
	})
	if err != nil {
		return h.fail(c, err)
	}

	setETag(c, d)
	return c.JSON(http.StatusOK, d.Value())
}

func (h handlers) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, stores.ErrPropertyNotFound):
		return errorResponse(c, http.StatusNotFound, err)
	case errors.Is(err, stores.ErrInvalidKey):
		return errorResponse(c, http.StatusBadRequest, err)
	case errors.Is(err, bind.ErrInvalidState):
		return errorResponse(c, http.StatusConflict, err)
	}

	h.log.Errorw("request failed", "path", c.Request().URL.Path, "error", err)
	return errorResponse(c, http.StatusInternalServerError, err)
}

func errorResponse(c echo.Context, status int, err error) error {
	return c.JSON(status, JSON{
		"error": err.Error(),
	})
}

func readMapping(c echo.Context) (*paths.Map, error) {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}

	v, present, err := encoding.JSON.Decode(string(raw))
	if err != nil {
		return nil, err
	}
	if !present {
		return paths.NewMap(), nil
	}
	m, ok := v.(*paths.Map)
	if !ok {
		return nil, errors.New("request body must be a json object")
	}
	return m, nil
}

// pathParam accepts both "a/b/c" and "a.b.c".
func pathParam(c echo.Context) string {
	path := strings.Trim(c.Param("*"), "/")
	return strings.ReplaceAll(path, "/", paths.Separator)
}

func etag(d *bind.Data) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64String(d.Bind.String()))
}

func setETag(c echo.Context, d *bind.Data) {
	c.Response().Header().Set("ETag", etag(d))
}

func notModified(c echo.Context, d *bind.Data) bool {
	tag := etag(d)
	c.Response().Header().Set("ETag", tag)
	return c.Request().Header.Get("If-None-Match") == tag
}
