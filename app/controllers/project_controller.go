package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"listify/app/logging"
	"listify/app/models"
	"listify/app/services"
)

// maxBodyBytes bounds an uploaded project tree.
const maxBodyBytes = 8 << 20

// ProjectController handles HTTP requests for project trees.
type ProjectController struct {
	Service *services.ProjectService
}

// NewProjectController creates a new ProjectController.
func NewProjectController(service *services.ProjectService) *ProjectController {
	return &ProjectController{Service: service}
}

type writeResponse struct {
	Message   string `json:"message"`
	ProjectID int64  `json:"project_id"`
}

type deleteResponse struct {
	Message string `json:"message"`
	models.DeleteResult
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// UploadProject handles POST /upload/project.
func (c *ProjectController) UploadProject(w http.ResponseWriter, r *http.Request) {
	var input models.ProjectInput
	if !decodeBody(w, r, &input) {
		return
	}

	summary, err := c.Service.AddProjectTree(r.Context(), input)
	if err != nil {
		writeError(w, r, err, "Error uploading project")
		return
	}
	writeJSON(w, http.StatusOK, writeResponse{Message: "Project uploaded successfully", ProjectID: summary.ID})
}

// GetProject handles GET /get/project/{id}.
func (c *ProjectController) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tree, err := c.Service.GetProjectTree(r.Context(), id)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("Error loading project with ID %d", id))
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// GetAllProjects handles GET /get/all_projects.
func (c *ProjectController) GetAllProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := c.Service.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err, "Error listing projects")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// UpdateProject handles POST /update/project/{id}.
func (c *ProjectController) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input models.ProjectInput
	if !decodeBody(w, r, &input) {
		return
	}

	summary, err := c.Service.OverwriteProjectTree(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("Error updating project with ID %d", id))
		return
	}
	writeJSON(w, http.StatusOK, writeResponse{Message: "Project updated successfully", ProjectID: summary.ID})
}

// DeleteElement handles DELETE /delete/{kind}/{id}.
func (c *ProjectController) DeleteElement(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := c.Service.DeleteElement(r.Context(), kind, id)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("Error deleting %s with ID %d", kind, id))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Message: "Deleted successfully", DeleteResult: res})
}

// Health handles GET /healthz.
func (c *ProjectController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: fmt.Sprintf("invalid id %q", raw)})
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request payload: " + err.Error()})
		return false
	}
	return true
}

// writeError maps err to a status code. Faults are logged and reported as
// prefix followed by the underlying error.
func writeError(w http.ResponseWriter, r *http.Request, err error, prefix string) {
	var (
		verr *models.ValidationError
		f    *services.Fault
	)
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	case errors.Is(err, models.ErrInvalidKind):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: verr.Error()})
	default:
		logger := logging.FromContext(r.Context())
		if errors.As(err, &f) {
			logger.Error(prefix, "op", f.Op, "err", f.Err)
		} else {
			logger.Error(prefix, "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("%s: %v", prefix, err)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
