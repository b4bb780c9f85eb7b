package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"listify/app/controllers"
	"listify/app/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RegisterRoutes sets up all routes for the application. Every request gets
// a request id, a logger carrying it, and a context bounded by timeout
// (zero disables the bound).
func RegisterRoutes(router *mux.Router, projectController *controllers.ProjectController, logger *log.Logger, timeout time.Duration) {
	router.Use(requestContext(logger, timeout))

	router.HandleFunc("/upload/project", projectController.UploadProject).Methods(http.MethodPost)
	router.HandleFunc("/get/project/{id}", projectController.GetProject).Methods(http.MethodGet)
	router.HandleFunc("/get/all_projects", projectController.GetAllProjects).Methods(http.MethodGet)
	router.HandleFunc("/update/project/{id}", projectController.UpdateProject).Methods(http.MethodPost)
	router.HandleFunc("/delete/{kind}/{id}", projectController.DeleteElement).Methods(http.MethodDelete)
	router.HandleFunc("/healthz", projectController.Health).Methods(http.MethodGet)
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestContext(logger *log.Logger, timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			reqLogger := logger.With("request_id", id)
			ctx := logging.WithLogger(r.Context(), reqLogger)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			reqLogger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}
