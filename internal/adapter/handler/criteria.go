package handler

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/adapter/dto/common"
	dto "github.com/johnquangdev/qa-review/internal/adapter/dto/criteria"
	"github.com/johnquangdev/qa-review/internal/adapter/presenter"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	criteriaUsecase "github.com/johnquangdev/qa-review/internal/usecase/criteria"
	"github.com/johnquangdev/qa-review/internal/usecase/scoring"
)

const defaultPageSize = 20

// Criteria handles evaluation template HTTP requests
type Criteria struct {
	criteria criteriaUsecase.Service
	scoring  scoring.Service
	logger   *zap.Logger
}

// NewCriteriaHandler creates a new criteria handler
func NewCriteriaHandler(criteria criteriaUsecase.Service, scoringSvc scoring.Service, logger *zap.Logger) *Criteria {
	return &Criteria{criteria: criteria, scoring: scoringSvc, logger: logger}
}

// CreateCriteria handles POST /criteria
// @Summary      Create an evaluation template
// @Description  Creates a template with optional nested categories and metrics in one step
// @Tags         Criteria
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      criteria.CriteriaRequest  true  "Template"
// @Success      201      {object}  criteria.CriteriaResponse
// @Failure      400      {object}  common.ErrorResponse  "Validation failed"
// @Failure      403      {object}  common.ErrorResponse  "Permission denied"
// @Router       /criteria [post]
func (h *Criteria) CreateCriteria(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.CriteriaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	created, err := h.criteria.CreateCriteria(c.Request().Context(), subject, toCriteriaInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToCriteriaResponse(created))
}

// ListCriteria handles GET /criteria
// @Summary      List evaluation templates visible to the caller
// @Tags         Criteria
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Name filter"
// @Param        page       query     int     false  "Page, starting at 1"
// @Param        page_size  query     int     false  "Page size, at most 100"
// @Success      200        {object}  common.ListResponse
// @Router       /criteria [get]
func (h *Criteria) ListCriteria(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ListCriteriaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}

	list, total, err := h.criteria.ListCriteria(c.Request().Context(), subject, req.Search, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	totalPages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return HandleSuccess(h.logger, c, common.ListResponse{
		Data: presenter.ToCriteriaListResponse(list),
		Pagination: &common.PaginationResponse{
			Page:       req.Page,
			PageSize:   req.PageSize,
			TotalPages: totalPages,
			TotalItems: total,
		},
	})
}

// GetCriteria handles GET /criteria/:id
// @Summary      Get an evaluation template with its categories and metrics
// @Tags         Criteria
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Criteria ID (UUID)"
// @Success      200  {object}  criteria.CriteriaResponse
// @Failure      404  {object}  common.ErrorResponse  "Criteria not found"
// @Router       /criteria/{id} [get]
func (h *Criteria) GetCriteria(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	found, err := h.criteria.GetCriteria(c.Request().Context(), subject, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCriteriaResponse(found))
}

// UpdateCriteria handles PUT /criteria/:id
// @Summary      Update template fields
// @Description  Replaces the top-level fields; categories are edited through their own routes
// @Tags         Criteria
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Criteria ID (UUID)"
// @Param        request  body      criteria.CriteriaRequest  true  "Template"
// @Success      200      {object}  criteria.CriteriaResponse
// @Router       /criteria/{id} [put]
func (h *Criteria) UpdateCriteria(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.CriteriaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.criteria.UpdateCriteria(c.Request().Context(), subject, id, toCriteriaInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCriteriaResponse(updated))
}

// DeleteCriteria handles DELETE /criteria/:id
// @Summary      Delete a template with its categories and metrics
// @Tags         Criteria
// @Security     BearerAuth
// @Param        id   path      string  true  "Criteria ID (UUID)"
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  common.ErrorResponse  "Template is assigned to recordings"
// @Router       /criteria/{id} [delete]
func (h *Criteria) DeleteCriteria(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.criteria.DeleteCriteria(c.Request().Context(), subject, id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"deleted": id.String()})
}

// CreateCategory handles POST /criteria/:id/categories
// @Summary      Add a category
// @Tags         Criteria
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Criteria ID (UUID)"
// @Param        request  body      criteria.CategoryRequest  true  "Category"
// @Success      201      {object}  criteria.CategoryResponse
// @Router       /criteria/{id}/categories [post]
func (h *Criteria) CreateCategory(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	criteriaID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	created, err := h.criteria.CreateCategory(c.Request().Context(), subject, criteriaID, toCategoryInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToCategoryResponse(created))
}

// UpdateCategory handles PUT /criteria/:id/categories/:categoryId
// @Summary      Update a category
// @Tags         Criteria
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string                    true  "Criteria ID (UUID)"
// @Param        categoryId  path      string                    true  "Category ID (UUID)"
// @Param        request     body      criteria.CategoryRequest  true  "Category"
// @Success      200         {object}  criteria.CategoryResponse
// @Router       /criteria/{id}/categories/{categoryId} [put]
func (h *Criteria) UpdateCategory(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	criteriaID, categoryID, err := categoryPath(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.criteria.UpdateCategory(c.Request().Context(), subject, criteriaID, categoryID, toCategoryInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToCategoryResponse(updated))
}

// DeleteCategory handles DELETE /criteria/:id/categories/:categoryId
// @Summary      Delete a category and its metrics
// @Tags         Criteria
// @Security     BearerAuth
// @Param        id          path      string  true  "Criteria ID (UUID)"
// @Param        categoryId  path      string  true  "Category ID (UUID)"
// @Success      200         {object}  map[string]interface{}
// @Router       /criteria/{id}/categories/{categoryId} [delete]
func (h *Criteria) DeleteCategory(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	criteriaID, categoryID, err := categoryPath(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.criteria.DeleteCategory(c.Request().Context(), subject, criteriaID, categoryID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"deleted": categoryID.String()})
}

// CreateMetric handles POST /criteria/:id/categories/:categoryId/metrics
// @Summary      Add a metric
// @Tags         Criteria
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string                  true  "Criteria ID (UUID)"
// @Param        categoryId  path      string                  true  "Category ID (UUID)"
// @Param        request     body      criteria.MetricRequest  true  "Metric"
// @Success      201         {object}  criteria.MetricResponse
// @Router       /criteria/{id}/categories/{categoryId}/metrics [post]
func (h *Criteria) CreateMetric(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	criteriaID, categoryID, err := categoryPath(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.MetricRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	created, err := h.criteria.CreateMetric(c.Request().Context(), subject, criteriaID, categoryID, toMetricInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToMetricResponse(created))
}

// UpdateMetric handles PUT /criteria/:id/categories/:categoryId/metrics/:metricId
// @Summary      Update a metric
// @Tags         Criteria
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string                  true  "Criteria ID (UUID)"
// @Param        categoryId  path      string                  true  "Category ID (UUID)"
// @Param        metricId    path      string                  true  "Metric ID (UUID)"
// @Param        request     body      criteria.MetricRequest  true  "Metric"
// @Success      200         {object}  criteria.MetricResponse
// @Router       /criteria/{id}/categories/{categoryId}/metrics/{metricId} [put]
func (h *Criteria) UpdateMetric(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	criteriaID, categoryID, err := categoryPath(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	metricID, err := pathUUID(c, "metricId")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.MetricRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.criteria.UpdateMetric(c.Request().Context(), subject, criteriaID, categoryID, metricID, toMetricInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToMetricResponse(updated))
}

// DeleteMetric handles DELETE /criteria/:id/categories/:categoryId/metrics/:metricId
// @Summary      Delete a metric
// @Tags         Criteria
// @Security     BearerAuth
// @Param        id          path      string  true  "Criteria ID (UUID)"
// @Param        categoryId  path      string  true  "Category ID (UUID)"
// @Param        metricId    path      string  true  "Metric ID (UUID)"
// @Success      200         {object}  map[string]interface{}
// @Router       /criteria/{id}/categories/{categoryId}/metrics/{metricId} [delete]
func (h *Criteria) DeleteMetric(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	criteriaID, categoryID, err := categoryPath(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	metricID, err := pathUUID(c, "metricId")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.criteria.DeleteMetric(c.Request().Context(), subject, criteriaID, categoryID, metricID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"deleted": metricID.String()})
}

// Score handles POST /criteria/:id/score
// @Summary      Compute a score without storing it
// @Description  Category templates take per-metric results; legacy templates take four domain scores
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Criteria ID (UUID)"
// @Param        request  body      criteria.ScoreRequest  true  "Answers"
// @Success      200      {object}  scoring.Result
// @Failure      400      {object}  common.ErrorResponse  "Invalid result or wrong scoring method"
// @Router       /criteria/{id}/score [post]
func (h *Criteria) Score(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ScoreRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	in, err := toScoringInput(req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	res, err := h.scoring.Score(c.Request().Context(), subject, id, in)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

func categoryPath(c echo.Context) (criteriaID, categoryID uuid.UUID, err error) {
	criteriaID, err = pathUUID(c, "id")
	if err != nil {
		return
	}
	categoryID, err = pathUUID(c, "categoryId")
	return
}

// ==================== request mapping ====================

func toCriteriaInput(req dto.CriteriaRequest) criteriaUsecase.CriteriaInput {
	in := criteriaUsecase.CriteriaInput{
		Name:              req.Name,
		Description:       req.Description,
		TeamID:            req.TeamID,
		IsPublic:          req.IsPublic,
		Weights:           req.Weights.ToEntity(),
		RequiredPhrases:   req.RequiredPhrases,
		ProhibitedPhrases: req.ProhibitedPhrases,
	}
	for _, sec := range req.ChecklistItems {
		section := entities.ChecklistSection{ID: sec.ID, Title: sec.Title, Items: make([]entities.ChecklistItem, 0, len(sec.Items))}
		for _, item := range sec.Items {
			section.Items = append(section.Items, entities.ChecklistItem{ID: item.ID, Text: item.Text})
		}
		in.ChecklistItems = append(in.ChecklistItems, section)
	}
	for _, cat := range req.Categories {
		in.Categories = append(in.Categories, toCategoryInput(cat))
	}
	return in
}

func toCategoryInput(req dto.CategoryRequest) criteriaUsecase.CategoryInput {
	in := criteriaUsecase.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Weight:      req.Weight,
		Position:    req.Position,
	}
	for _, m := range req.Metrics {
		in.Metrics = append(in.Metrics, toMetricInput(m))
	}
	return in
}

func toMetricInput(req dto.MetricRequest) criteriaUsecase.MetricInput {
	in := criteriaUsecase.MetricInput{
		Name:        req.Name,
		Description: req.Description,
		Weight:      req.Weight,
		Type:        entities.MetricType(req.Type),
		ScaleMin:    req.ScaleMin,
		ScaleMax:    req.ScaleMax,
		Position:    req.Position,
	}
	for _, l := range req.ScaleLabels {
		in.ScaleLabels = append(in.ScaleLabels, entities.ScaleLabel{Value: l.Value, Label: l.Label})
	}
	return in
}

func toScoringInput(req dto.ScoreRequest) (scoring.Input, error) {
	var in scoring.Input
	for _, r := range req.Results {
		value, err := decodeValue(r.Value)
		if err != nil {
			return scoring.Input{}, errors.ErrInvalidResult("value must be a boolean, number or string").
				WithDetail("metric_id", r.MetricID.String())
		}
		in.Results = append(in.Results, entities.MetricResult{MetricID: r.MetricID, Value: value})
	}
	if req.DomainScores != nil {
		in.DomainScores = &entities.DomainScores{
			CustomerService:     req.DomainScores.CustomerService,
			ProductKnowledge:    req.DomainScores.ProductKnowledge,
			CommunicationSkills: req.DomainScores.CommunicationSkills,
			ComplianceAdherence: req.DomainScores.ComplianceAdherence,
		}
	}
	return in, nil
}

// decodeValue keeps numbers as json.Number so integers survive untouched
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case nil, bool, json.Number, string:
		return v, nil
	default:
		return nil, errors.ErrInvalidArgument("unsupported value")
	}
}
