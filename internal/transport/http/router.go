package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter configures the conversion server routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/upload", handler.Upload).Methods("POST")
	r.HandleFunc("/status/{id}", handler.Status).Methods("GET")
	r.HandleFunc("/download/{filename}", handler.Download).Methods("GET")
	r.HandleFunc("/stats", handler.Stats).Methods("GET")
	r.HandleFunc("/api/video/recent", handler.Recent).Methods("GET")
	return r
}

// WithCORS lets browser front-ends on other origins call the server.
func WithCORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	})
	return c.Handler(next)
}
