// Package gin adapts the form engine to the Gin framework: Bind validates
// and shapes an incoming submission against entity metadata before the
// handler runs.
package gin

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
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// Bind returns a middleware that validates the request body against the
// entity's metadata, runs the payload-shaping pipeline, and stores the
// shaped Record in the request context. Validation failures abort with 400
// and the field-keyed error map.
func Bind(entity meta.EntityMetadata) gin.HandlerFunc {
	return func(c *gin.Context) {
		bts, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		body := string(bts)
		if !gjson.Valid(body) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
			return
		}
		sess, _ := session.FromToken(bearerToken(c.GetHeader("Authorization")))
		payload, errs := form.ShapeAndValidate(entity, metaform.FromJSON(body), sess)
		if errs != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errs.Error(), "fields": errs})
			return
		}
		ctx := context.WithValue(c.Request.Context(), internal.PayloadKey, payload)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Payload retrieves the shaped submission stored by Bind, or nil when the
// middleware did not run.
func Payload(c *gin.Context) metaform.Record {
	if val := c.Request.Context().Value(internal.PayloadKey); val != nil {
		if rec, ok := val.(metaform.Record); ok {
			return rec
		}
	}
	return nil
}

// Filters merges path and query parameters into a table filter state for
// list handlers.
func Filters(c *gin.Context) table.FilterState {
	unified := internal.Unify(
		func(any) map[string]string {
			params := map[string]string{}
			for _, p := range c.Params {
				params[p.Key] = p.Value
			}
			return params
		},
		func(any) map[string][]string {
			return c.Request.URL.Query()
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
