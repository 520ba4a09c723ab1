// Package fiber adapts the form engine to the Fiber framework.
package fiber

import (
	"strings"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/form"
	"github.com/eventara/metaform/internal"
	"github.com/eventara/metaform/meta"
	"github.com/eventara/metaform/session"
	"github.com/eventara/metaform/table"
	"github.com/gofiber/fiber/v3"
	"github.com/tidwall/gjson"
)

// Bind returns a middleware that validates the request body against the
// entity's metadata, runs the payload-shaping pipeline, and stores the
// shaped Record in the request locals.
func Bind(entity meta.EntityMetadata) fiber.Handler {
	return func(c fiber.Ctx) error {
		body := string(c.Body())
		if !gjson.Valid(body) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		sess, _ := session.FromToken(bearerToken(c.Get("Authorization")))
		payload, errs := form.ShapeAndValidate(entity, metaform.FromJSON(body), sess)
		if errs != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errs.Error(), "fields": errs})
		}
		c.Locals(internal.PayloadKey, payload)
		return c.Next()
	}
}

// Payload retrieves the shaped submission stored by Bind, or nil when the
// middleware did not run.
func Payload(c fiber.Ctx) metaform.Record {
	if val := c.Locals(internal.PayloadKey); val != nil {
		if rec, ok := val.(metaform.Record); ok {
			return rec
		}
	}
	return nil
}

// Filters merges route and query parameters into a table filter state for
// list handlers.
func Filters(c fiber.Ctx) table.FilterState {
	unified := internal.Unify(
		func(any) map[string]string {
			params := map[string]string{}
			for _, name := range c.Route().Params {
				params[name] = c.Params(name)
			}
			return params
		},
		func(any) map[string][]string {
			query := map[string][]string{}
			for key, values := range c.Queries() {
				query[key] = []string{values}
			}
			return query
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
