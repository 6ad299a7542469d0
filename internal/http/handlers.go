package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
	"github.com/arkanova/solar-monitor/internal/repository"
	"github.com/arkanova/solar-monitor/internal/service"
)

type UserStore interface {
	FindByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, email, password string) (domain.User, error)
	Update(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page domain.Page) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	VerifyCredentials(ctx context.Context, email, password string) (domain.User, error)
}

type PanelStore interface {
	FindByID(ctx context.Context, id int64) (domain.SolarPanel, error)
	ListByUser(ctx context.Context, userID int64, page domain.Page) ([]domain.SolarPanel, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, location string, userID int64) (domain.SolarPanel, error)
	UpdateLocation(ctx context.Context, id int64, location string) (domain.SolarPanel, error)
	Delete(ctx context.Context, id int64) error
}

type SensorStore interface {
	FindByID(ctx context.Context, id int64) (domain.Sensor, error)
	List(ctx context.Context) ([]domain.Sensor, error)
	ListByPanel(ctx context.Context, panelID int64) ([]domain.Sensor, error)
	Create(ctx context.Context, panelID, typeID int64) (domain.Sensor, error)
	Delete(ctx context.Context, id int64) error
}

type MeasurementStore interface {
	FindByID(ctx context.Context, id int64) (domain.Measurement, error)
	ListBySensor(ctx context.Context, sensorID int64, rng repository.TimeRange) ([]domain.Measurement, error)
	Latest(ctx context.Context, sensorID int64) (domain.Measurement, error)
}

type PanelSummarizer interface {
	Summarize(ctx context.Context, panelID int64, rng repository.TimeRange) (map[string]service.TypeSummary, error)
}

type Backups interface {
	Export(ctx context.Context) (service.Backup, error)
	Import(ctx context.Context, dump []byte) error
	ImportObject(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// Deps are the collaborators behind the routes. PageMaxLimit caps the limit
// query parameter; zero leaves it uncapped.
type Deps struct {
	Users        UserStore
	Panels       PanelStore
	Sensors      SensorStore
	Measurements MeasurementStore
	Summary      PanelSummarizer
	Backup       Backups
	PageMaxLimit int
	Logger       zerolog.Logger
}

type Handlers struct {
	Deps
	validate *validator.Validate
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{Deps: d, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Register mounts every API route over svcs.
func Register(app *fiber.App, svcs *service.Services, pageMaxLimit int, logger zerolog.Logger) {
	NewHandlers(Deps{
		Users:        svcs.Repos.Users,
		Panels:       svcs.Repos.Panels,
		Sensors:      svcs.Repos.Sensors,
		Measurements: svcs.Repos.Measurements,
		Summary:      svcs.Summary,
		Backup:       svcs.Backup,
		PageMaxLimit: pageMaxLimit,
		Logger:       logger,
	}).Routes(app)
}

func (h *Handlers) Routes(r fiber.Router) {
	api := r.Group("/api")

	users := api.Group("/users")
	users.Get("/", h.getUser)
	users.Patch("/", h.updateUser)
	users.Delete("/", h.deleteUser)
	users.Post("/register", h.registerUser)
	users.Post("/login", h.loginUser)
	users.Get("/list", h.listUsers)

	panels := api.Group("/solarpanel")
	panels.Get("/", h.getPanel)
	panels.Post("/", h.createPanel)
	panels.Patch("/", h.updatePanel)
	panels.Delete("/", h.deletePanel)
	panels.Get("/list/user", h.listPanelsByUser)
	panels.Get("/summary", h.panelSummary)

	sensors := api.Group("/sensor")
	sensors.Get("/", h.getSensor)
	sensors.Post("/", h.createSensor)
	sensors.Delete("/", h.deleteSensor)
	sensors.Get("/list/solarpanel", h.listSensors)

	measurements := api.Group("/measurement")
	measurements.Get("/", h.getMeasurement)
	measurements.Get("/list/sensor", h.listMeasurements)
	measurements.Get("/latest", h.latestMeasurement)

	backup := api.Group("/backup")
	backup.Get("/export", h.exportBackup)
	backup.Post("/import", h.importBackup)
	backup.Get("/list", h.listBackups)
}

// fail maps domain errors onto status codes. Storage detail never reaches
// the client.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already exists"})
	case errors.Is(err, domain.ErrInvalidInput):
		return badRequest(c, err.Error())
	default:
		h.Logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// bind decodes a JSON body into dst and checks its validate tags.
func (h *Handlers) bind(c *fiber.Ctx, dst any) error {
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New("missing required field: " + verrs[0].Field())
		}
		return err
	}
	return nil
}

// queryID parses a required integer query parameter.
func queryID(c *fiber.Ctx, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(key), 10, 64)
	return id, err == nil
}

// page reads page and limit; absent or unparsable values fall back to the
// defaults. ok is false when the offset would not fit in an int.
func (h *Handlers) page(c *fiber.Ctx) (domain.Page, bool) {
	number, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	p := domain.NewPage(number, limit).Clamp(h.PageMaxLimit)
	return p, p.InRange()
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// timeRange reads start_date and end_date. Bounds without a zone are UTC.
func timeRange(c *fiber.Ctx) (repository.TimeRange, error) {
	var rng repository.TimeRange
	for key, dst := range map[string]**time.Time{"start_date": &rng.Start, "end_date": &rng.End} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			return repository.TimeRange{}, errors.New("invalid " + key)
		}
		*dst = &t
	}
	return rng, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date " + strconv.Quote(raw))
}
