package response

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type failure struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

// JSON writes v with the given status. The request ID is echoed in a
// header so failures stay correlatable without an envelope around every
// body.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Fail writes the soft-failure shape shared by every protected endpoint.
func Fail(w http.ResponseWriter, r *http.Request, status int, code string) {
	JSON(w, r, status, failure{Ok: false, Error: code})
}
