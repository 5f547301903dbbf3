package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/models"
)

type ProjectStore interface {
	SaveProject(ctx context.Context, userID, name string, designOptions json.RawMessage, originalURL string, processedURLs []string) (*models.Project, []models.Image, error)
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
}

type ProjectService struct {
	store  ProjectStore
	logger logrus.FieldLogger
}

func NewProjectService(store ProjectStore, log logrus.FieldLogger) *ProjectService {
	return &ProjectService{store: store, logger: log}
}

func (s *ProjectService) SaveProject(ctx context.Context, req *models.SaveProjectRequest) (*models.SaveProjectResponse, error) {
	if err := validateUserID(req.UserID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.ProjectName)
	if name == "" {
		return nil, fmt.Errorf("%w: projectName is required", ErrValidation)
	}
	if req.OriginalImageURL == "" {
		return nil, fmt.Errorf("%w: originalImageUrl is required", ErrValidation)
	}
	if len(req.DesignOptions) > 0 && !json.Valid(req.DesignOptions) {
		return nil, fmt.Errorf("%w: designOptions must be a JSON object", ErrValidation)
	}

	project, images, err := s.store.SaveProject(ctx, req.UserID, name, req.DesignOptions, req.OriginalImageURL, req.ProcessedImageURLs)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"project_id": project.ID,
		"images":     len(images),
	}).Info("project saved")

	return &models.SaveProjectResponse{Success: true, Project: project, Images: images}, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return s.store.ListProjects(ctx, userID)
}
