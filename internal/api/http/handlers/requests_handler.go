package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// RequestsHandler exposes maintenance request endpoints.
type RequestsHandler struct {
	requests *service.RequestService
	comments *service.CommentService
	now      func() time.Time
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requests *service.RequestService, comments *service.CommentService) *RequestsHandler {
	return &RequestsHandler{requests: requests, comments: comments, now: time.Now}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.CreateRequestRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	category, err := domain.ParseCategory(body.Category)
	if err != nil {
		return err
	}
	var priority domain.Priority
	if strings.TrimSpace(body.Priority) != "" {
		if priority, err = domain.ParsePriority(body.Priority); err != nil {
			return err
		}
	}

	req, err := h.requests.CreateRequest(c.UserContext(), session, service.CreateRequestInput{
		Title:                   body.Title,
		Description:             body.Description,
		Category:                category,
		Priority:                priority,
		Location:                body.Location,
		EstimatedCompletionDate: body.EstimatedCompletionDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(req, languageOf(c))})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	filter, page, size, err := parseRequestQuery(c)
	if err != nil {
		return err
	}
	requests, total, err := h.requests.ListRequests(c.UserContext(), session, filter)
	if err != nil {
		return err
	}
	lang := languageOf(c)
	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestResponse(&requests[i], lang))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.ListMeta{Page: page, PageSize: size, Total: total},
	})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	details, err := h.requests.GetRequestDetails(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	lang, now := languageOf(c), h.now()
	actions := make([]dto.EnumView, 0, len(details.AllowedActions))
	for _, a := range details.AllowedActions {
		actions = append(actions, dto.ActionView(a, lang))
	}
	return c.JSON(fiber.Map{"data": dto.RequestDetailResponse{
		RequestResponse: dto.NewRequestResponse(details.Request, lang),
		Requester:       dto.NewUserSummary(details.Requester),
		Technician:      dto.NewUserSummary(details.Technician),
		Manager:         dto.NewUserSummary(details.Manager),
		Comments:        dto.NewCommentResponses(details.Comments, now, lang),
		History:         dto.NewHistoryResponses(details.History, now, lang),
		AllowedActions:  actions,
	}})
}

// Update PATCH /requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.UpdateRequestRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	changes, err := toRequestChanges(body)
	if err != nil {
		return err
	}
	req, err := h.requests.EditRequest(c.UserContext(), session, c.Params("id"), changes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req, languageOf(c))})
}

// Delete DELETE /requests/:id.
func (h *RequestsHandler) Delete(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	if err := h.requests.DeleteRequest(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Assign POST /requests/:id/assign.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.AssignTechnicianRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.AssignTechnician(c.UserContext(), session, c.Params("id"), strings.TrimSpace(body.TechnicianID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req, languageOf(c))})
}

// PerformAction POST /requests/:id/actions/:action.
func (h *RequestsHandler) PerformAction(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	action, err := domain.ParseAction(c.Params("action"))
	if err != nil {
		return err
	}
	req, err := h.requests.PerformAction(c.UserContext(), session, c.Params("id"), action)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req, languageOf(c))})
}

// Stats GET /requests/stats.
func (h *RequestsHandler) Stats(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	stats, err := h.requests.DashboardStats(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}

// History GET /requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	rows, err := h.requests.ListHistory(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(rows, h.now(), languageOf(c))})
}

// ListComments GET /requests/:id/comments.
func (h *RequestsHandler) ListComments(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponses(comments, h.now(), languageOf(c))})
}

// AddComment POST /requests/:id/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.CreateCommentRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.UserContext(), session, c.Params("id"), body.Text, body.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment, h.now(), languageOf(c))})
}

func parseRequestQuery(c *fiber.Ctx) (domain.RequestFilter, int, int, error) {
	var filter domain.RequestFilter
	for _, raw := range splitList(c.Query("status")) {
		s, err := domain.ParseStatus(raw)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	for _, raw := range splitList(c.Query("category")) {
		v, err := domain.ParseCategory(raw)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.Categories = append(filter.Categories, v)
	}
	for _, raw := range splitList(c.Query("priority")) {
		p, err := domain.ParsePriority(raw)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.Priorities = append(filter.Priorities, p)
	}
	if v := strings.TrimSpace(c.Query("technician_id")); v != "" {
		filter.AssignedTechnicianID = &v
	}
	if v := strings.TrimSpace(c.Query("requester_id")); v != "" {
		filter.RequesterID = &v
	}
	var err error
	if filter.CreatedFrom, err = parseTime("created_from", c.Query("created_from")); err != nil {
		return filter, 0, 0, err
	}
	if filter.CreatedTo, err = parseTime("created_to", c.Query("created_to")); err != nil {
		return filter, 0, 0, err
	}
	filter.SearchTerm = strings.TrimSpace(c.Query("search"))

	page, size, offset := parsePage(c)
	filter.Limit, filter.Offset = size, offset
	return filter, page, size, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toRequestChanges(body dto.UpdateRequestRequest) (domain.RequestChanges, error) {
	changes := domain.RequestChanges{
		Title:       body.Title,
		Description: body.Description,
		Location:    body.Location,
	}
	if body.Category != nil {
		v, err := domain.ParseCategory(*body.Category)
		if err != nil {
			return changes, err
		}
		changes.Category = &v
	}
	if body.Priority != nil {
		v, err := domain.ParsePriority(*body.Priority)
		if err != nil {
			return changes, err
		}
		changes.Priority = &v
	}
	if body.Status != nil {
		v, err := domain.ParseStatus(*body.Status)
		if err != nil {
			return changes, err
		}
		changes.Status = &v
	}
	changes.EstimatedCompletionDate = optional(body.EstimatedCompletionDate)
	changes.Notes = optional(body.Notes)
	changes.Cost = optional(body.Cost)
	changes.AssignedTechnicianID = optional(body.AssignedTechnicianID)
	return changes, nil
}

func optional[T any](n dto.Nullable[T]) *domain.Optional[T] {
	switch {
	case !n.Set:
		return nil
	case n.Null:
		return domain.None[T]()
	default:
		return domain.Some(n.Value)
	}
}
