package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// LoadOpenAPI parses and validates an OpenAPI 3 document.
func LoadOpenAPI(ctx context.Context, spec []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// OpenAPIValidator rejects requests whose parameters or body do not match
// the document. Paths the document does not describe are passed through
// untouched. Authentication is left to the auth middleware.
func OpenAPIValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	// match on the raw request path regardless of the advertised host
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
					logger.Warn("openapi route lookup failed", "error", err, "path", r.URL.Path)
				}
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Info("request rejected by openapi validation",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err)
				appErr := internal.NewValidationError("Request does not match the API schema", internal.ErrCodeValidationFailed).
					WithDetails(err.Error())
				status, body := appErr.ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
