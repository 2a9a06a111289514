package tagkit

import (
	"fmt"
	"net/http"

	"github.com/flosch/pongo2/v6"
)

// RequestKey is the context variable under which the current HTTP request
// travels through the render context.
const RequestKey = "request"

// NewRequestContext builds a render context that carries the current request
// so request-aware tags can find it. data may be nil.
func NewRequestContext(r *http.Request, data pongo2.Context) pongo2.Context {
	merged := make(pongo2.Context, len(data)+1)
	merged.Update(data)
	merged[RequestKey] = r
	return merged
}

// RequestFromContext fetches the current request from the render context.
// A missing request is a wiring problem rather than a template mistake, so
// the error tells the caller how to fix it.
func RequestFromContext(ctx *pongo2.ExecutionContext, tagName string) (*http.Request, *pongo2.Error) {
	v := contextValue(ctx, RequestKey)
	if v == nil {
		return nil, ctx.Error(fmt.Sprintf(
			"The '%s' tag requires a '%s' variable in the template context. Render the template with a context built by tagkit.NewRequestContext.",
			tagName, RequestKey), nil)
	}
	r, ok := v.(*http.Request)
	if !ok {
		return nil, ctx.Error(fmt.Sprintf("The '%s' context variable is not an *http.Request (got %T).", RequestKey, v), nil)
	}
	return r, nil
}
