// Package echo adapts the form engine to the Echo framework.
package echo

import (
	"context"
	"io"
	"net/http"
	"strings"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/form"
	"github.com/eventara/metaform/internal"
	"github.com/eventara/metaform/meta"
	"github.com/eventara/metaform/session"
	"github.com/eventara/metaform/table"
	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
)

// Bind returns a middleware that validates the request body against the
// entity's metadata, runs the payload-shaping pipeline, and stores the
// shaped Record in the request context.
func Bind(entity meta.EntityMetadata) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bts, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
			}
			body := string(bts)
			if !gjson.Valid(body) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			}
			sess, _ := session.FromToken(bearerToken(c.Request().Header.Get("Authorization")))
			payload, errs := form.ShapeAndValidate(entity, metaform.FromJSON(body), sess)
			if errs != nil {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": errs.Error(), "fields": errs})
			}
			req := c.Request()
			ctx := context.WithValue(req.Context(), internal.PayloadKey, payload)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// Payload retrieves the shaped submission stored by Bind, or nil when the
// middleware did not run.
func Payload(c echo.Context) metaform.Record {
	if val := c.Request().Context().Value(internal.PayloadKey); val != nil {
		if rec, ok := val.(metaform.Record); ok {
			return rec
		}
	}
	return nil
}

// Filters merges path and query parameters into a table filter state for
// list handlers.
func Filters(c echo.Context) table.FilterState {
	unified := internal.Unify(
		func(any) map[string]string {
			params := map[string]string{}
			for _, name := range c.ParamNames() {
				params[name] = c.Param(name)
			}
			return params
		},
		func(any) map[string][]string {
			return c.QueryParams()
		},
	)(c)
	fs := table.FilterState{}
	for k, v := range unified {
		fs.Set(k, v)
	}
	return fs
}

func bearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
