package http

import "github.com/gofiber/fiber/v2"

func (h *Handlers) exportBackup(c *fiber.Ctx) error {
	b, err := h.Backup.Export(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	if b.Key != "" {
		c.Set("X-Backup-Key", b.Key)
		c.Set("X-Backup-URL", b.URL)
	}
	c.Set(fiber.HeaderContentType, "application/sql")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="database_backup.sql"`)
	return c.Send(b.Data)
}

// importBackup restores from the request body, or from an uploaded dump when
// the key query parameter is set.
func (h *Handlers) importBackup(c *fiber.Ctx) error {
	var err error
	if key := c.Query("key"); key != "" {
		err = h.Backup.ImportObject(c.UserContext(), key)
	} else {
		err = h.Backup.Import(c.UserContext(), c.Body())
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "database imported"})
}

func (h *Handlers) listBackups(c *fiber.Ctx) error {
	keys, err := h.Backup.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"backups": keys})
}
