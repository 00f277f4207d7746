package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/strategyfactory/api/internal/jobs"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/service"
	"github.com/strategyfactory/api/pkg/response"
)

type AnalysisHandler struct {
	service   *service.AnalysisService
	validator *validator.Validate
}

func NewAnalysisHandler(svc *service.AnalysisService, v *validator.Validate) *AnalysisHandler {
	return &AnalysisHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/analysis/start
func (h *AnalysisHandler) Start(c *fiber.Ctx) error {
	var req model.AnalysisStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Start(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCompanyName) {
			return response.ValidationError(c, "Company name must contain letters or digits", nil)
		}
		if errors.Is(err, jobs.ErrCompanyBusy) {
			return response.Conflict(c, "An analysis for this company is already running", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Continue handles POST /api/analysis/continue/:slug
func (h *AnalysisHandler) Continue(c *fiber.Ctx) error {
	dirName := c.Params("slug")
	if dirName == "" {
		return response.ValidationError(c, "Company slug is required", nil)
	}

	result, err := h.service.Continue(dirName)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			return response.NotFound(c, "No analysis found for this company")
		}
		if errors.Is(err, jobs.ErrCompanyBusy) {
			return response.Conflict(c, "An analysis for this company is already running", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Cancel handles POST /api/analysis/cancel/:jobId
func (h *AnalysisHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Summary handles GET /api/analysis/summary/:slug
func (h *AnalysisHandler) Summary(c *fiber.Ctx) error {
	dirName := c.Params("slug")
	if dirName == "" {
		return response.ValidationError(c, "Company slug is required", nil)
	}

	summary, err := h.service.Summary(dirName)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			return response.NotFound(c, "No analysis found for this company")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, summary)
}

// List handles GET /api/analysis/list
func (h *AnalysisHandler) List(c *fiber.Ctx) error {
	entries, err := h.service.List()
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if entries == nil {
		entries = []model.AnalysisListEntry{}
	}
	return response.OK(c, fiber.Map{"analyses": entries})
}

// Delete handles DELETE /api/analysis/:slug
func (h *AnalysisHandler) Delete(c *fiber.Ctx) error {
	dirName := c.Params("slug")
	if dirName == "" {
		return response.ValidationError(c, "Company slug is required", nil)
	}

	if err := h.service.Delete(dirName); err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			return response.NotFound(c, "No analysis found for this company")
		}
		if errors.Is(err, service.ErrAnalysisRunning) {
			return response.Conflict(c, "Cannot delete while an analysis is running", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}
