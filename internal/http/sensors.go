package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arkanova/solar-monitor/internal/domain"
)

type sensorCreateRequest struct {
	SolarPanelID *int64 `json:"solar_panel_id" validate:"required"`
	TypeID       *int64 `json:"type_id" validate:"required"`
}

func (h *Handlers) getSensor(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "sensor id absent or invalid")
	}
	s, err := h.Sensors.FindByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s)
}

func (h *Handlers) createSensor(c *fiber.Ctx) error {
	var req sensorCreateRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	s, err := h.Sensors.Create(c.UserContext(), *req.SolarPanelID, *req.TypeID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (h *Handlers) deleteSensor(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "sensor id absent or invalid")
	}
	if err := h.Sensors.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "sensor deleted"})
}

// listSensors narrows to one panel when solar_panel_id is given.
func (h *Handlers) listSensors(c *fiber.Ctx) error {
	var (
		sensors []domain.Sensor
		err     error
	)
	if c.Query("solar_panel_id") == "" {
		sensors, err = h.Sensors.List(c.UserContext())
	} else {
		panelID, ok := queryID(c, "solar_panel_id")
		if !ok {
			return badRequest(c, "solar panel id invalid")
		}
		sensors, err = h.Sensors.ListByPanel(c.UserContext(), panelID)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"sensors": sensors, "total_count": len(sensors)})
}
