package handler

import (
	"net/http"
	"strings"
)

// Route type
type Route string

const (
	// RouteReport serves the junit report
	RouteReport Route = "/junit.xml"
	// RouteIndex forwards to the index resource, exact match only
	RouteIndex Route = "/{$}"
)

// NewServeMux mounts the report and forward handlers below basePath
func NewServeMux(basePath string, report, forward http.Handler) *http.ServeMux {
	basePath = strings.TrimSuffix(basePath, "/")
	mux := http.NewServeMux()
	mux.Handle(basePath+string(RouteReport), report)
	mux.Handle(basePath+string(RouteIndex), forward)
	return mux
}
