package api

import "net/http"

// health is a liveness probe. Always 200 while the process serves.
func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
