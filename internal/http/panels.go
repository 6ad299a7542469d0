package http

import "github.com/gofiber/fiber/v2"

type panelCreateRequest struct {
	Location *string `json:"location" validate:"required"`
	UserID   *int64  `json:"user_id" validate:"required"`
}

type panelUpdateRequest struct {
	Location *string `json:"location" validate:"required"`
}

func (h *Handlers) getPanel(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "solar panel id absent or invalid")
	}
	p, err := h.Panels.FindByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handlers) createPanel(c *fiber.Ctx) error {
	var req panelCreateRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Panels.Create(c.UserContext(), *req.Location, *req.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *Handlers) updatePanel(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "solar panel id absent or invalid")
	}
	var req panelUpdateRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Panels.UpdateLocation(c.UserContext(), id, *req.Location)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handlers) deletePanel(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "solar panel id absent or invalid")
	}
	if err := h.Panels.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "solar panel deleted"})
}

func (h *Handlers) listPanelsByUser(c *fiber.Ctx) error {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return badRequest(c, "user id absent or invalid")
	}
	page, ok := h.page(c)
	if !ok {
		return badRequest(c, "page out of range")
	}
	ctx := c.UserContext()
	panels, err := h.Panels.ListByUser(ctx, userID, page)
	if err != nil {
		return h.fail(c, err)
	}
	total, err := h.Panels.CountByUser(ctx, userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"panels": panels, "total_count": total})
}

// panelSummary is keyed by sensor type name.
func (h *Handlers) panelSummary(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "solar panel id absent or invalid")
	}
	rng, err := timeRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	summary, err := h.Summary.Summarize(c.UserContext(), id, rng)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(summary)
}
