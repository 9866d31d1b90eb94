package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler serves Swagger UI for the document published at specURL.
func Handler(specURL string) http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(specURL),
		httpSwagger.DocExpansion("none"),
	)
}
