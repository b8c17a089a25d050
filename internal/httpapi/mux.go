package httpapi

import (
	"net/http"
)

// NewMux wires the health check and static assets. Feature modules register
// their own routes on the returned mux.
func NewMux(store Pinger, staticDir string, mqttStatus func() string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store, mqttStatus)
	registerStatic(mux, staticDir)
	return mux
}
