package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"slices"

	"github.com/aretw0/hearth/pkg/server"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html.tmpl"))

type indexData struct {
	Title   string
	Version string
	Routes  []string
}

// index handles GET on the root path with a small HTML page listing the API.
func (a *API) index(req *server.Request) server.Response {
	routes := make([]string, 0)
	for route := range a.Routes() {
		if route != "" {
			routes = append(routes, route)
		}
	}
	slices.Sort(routes)

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexData{
		Title:   "Hearth",
		Version: a.version,
		Routes:  routes,
	})
	if err != nil {
		return a.internalError(req, "Could not render the page", err)
	}
	return server.HTML(http.StatusOK, buf.String())
}
