package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/arkanova/solar-monitor/internal/domain"
)

type credentialsRequest struct {
	Email    *string `json:"email" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

type userUpdateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *Handlers) getUser(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "user id absent or invalid")
	}
	u, err := h.Users.FindByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handlers) updateUser(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "user id absent or invalid")
	}
	var req userUpdateRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	u, err := h.Users.Update(c.UserContext(), id, domain.UserUpdate{Email: req.Email, Password: req.Password})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handlers) deleteUser(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "user id absent or invalid")
	}
	if err := h.Users.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "user deleted"})
}

func (h *Handlers) registerUser(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	u, err := h.Users.Create(c.UserContext(), *req.Email, *req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *Handlers) loginUser(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	u, err := h.Users.VerifyCredentials(c.UserContext(), *req.Email, *req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "email or password is not correct"})
		}
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handlers) listUsers(c *fiber.Ctx) error {
	page, ok := h.page(c)
	if !ok {
		return badRequest(c, "page out of range")
	}
	ctx := c.UserContext()
	users, err := h.Users.List(ctx, page)
	if err != nil {
		return h.fail(c, err)
	}
	total, err := h.Users.Count(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total_count": total})
}
