package wsbridge

import (
	"net/http"

	"github.com/gorilla/mux"
)

// wsPath is the single endpoint a second frontend attaches to, mirroring
// router.TPA_API_ROOT's single-purpose route constant.
const wsPath = "/ws"

// NewRouter builds the mux.Router exposing h's websocket endpoint, the
// same narrow one-route-per-concern shape as router.NewTpaRouter.
func NewRouter(h *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(wsPath, h.UpgradeToSocket)
	return r
}

// ListenAndServe starts an HTTP server on addr exposing h's websocket
// endpoint; it blocks until the server errors or is shut down.
func ListenAndServe(addr string, h *Hub) error {
	srv := &http.Server{Addr: addr, Handler: NewRouter(h)}
	return srv.ListenAndServe()
}
