package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"interior-design-backend/internal/middleware"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/services"
)

type ProjectsHandler struct {
	projectService *services.ProjectService
}

func NewProjectsHandler(projectService *services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projectService: projectService}
}

// SaveProject godoc
// @Summary     Save a project
// @Description Stores a project with its original and processed images in one transaction.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SaveProjectRequest true "Project"
// @Success     200 {object} models.SaveProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /save-project [post]
func (h *ProjectsHandler) SaveProject(c *gin.Context) {
	if h.projectService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	var req models.SaveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields", err.Error())
		return
	}
	if !middleware.MatchesUser(c, req.UserID) {
		forbidden(c)
		return
	}

	resp, err := h.projectService.SaveProject(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to save project")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListProjects godoc
// @Summary     List projects
// @Description Returns the user's projects, newest first.
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       userId query string true "User ID (UUID)"
// @Success     200 {object} models.ProjectListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	if h.projectService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	userID := c.Query("userId")
	if userID == "" {
		badRequest(c, "Missing userId", "")
		return
	}
	if !middleware.MatchesUser(c, userID) {
		forbidden(c)
		return
	}

	projects, err := h.projectService.ListProjects(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list projects")
		return
	}

	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: projects})
}
