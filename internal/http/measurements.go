package http

import "github.com/gofiber/fiber/v2"

func (h *Handlers) getMeasurement(c *fiber.Ctx) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "measurement id absent or invalid")
	}
	m, err := h.Measurements.FindByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}

// listMeasurements returns newest first. Without end_date the range ends now.
func (h *Handlers) listMeasurements(c *fiber.Ctx) error {
	sensorID, ok := queryID(c, "sensor_id")
	if !ok {
		return badRequest(c, "sensor id absent or invalid")
	}
	rng, err := timeRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	measurements, err := h.Measurements.ListBySensor(c.UserContext(), sensorID, rng)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"measurements": measurements, "total_count": len(measurements)})
}

func (h *Handlers) latestMeasurement(c *fiber.Ctx) error {
	sensorID, ok := queryID(c, "sensor_id")
	if !ok {
		return badRequest(c, "sensor id absent or invalid")
	}
	m, err := h.Measurements.Latest(c.UserContext(), sensorID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}
