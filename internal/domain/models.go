package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Sensor type names whose measurement payloads are decimal numbers.
const (
	SensorTypeTemperature = "temperature"
	SensorTypePower       = "power"
)

// User owns solar panels. Password is stored and compared as plaintext.
type User struct {
	ID       int64  `db:"id"`
	Email    string `db:"email"`
	Password string `db:"password"`
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}{u.ID, u.Email})
}

// UserUpdate carries the fields present in a partial update request.
type UserUpdate struct {
	Email    *string
	Password *string
}

func (u UserUpdate) Empty() bool { return u.Email == nil && u.Password == nil }

type SolarPanel struct {
	ID        int64
	Location  string
	User      User
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p SolarPanel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        int64  `json:"id"`
		Location  string `json:"location"`
		UserID    int64  `json:"user_id"`
		CreatedAt int64  `json:"created_at"`
		UpdatedAt int64  `json:"updated_at"`
	}{p.ID, p.Location, p.User.ID, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli()})
}

type SensorType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Numeric reports whether measurements of this type carry a decimal value.
func (t SensorType) Numeric() bool {
	return t.Name == SensorTypeTemperature || t.Name == SensorTypePower
}

type Sensor struct {
	ID         int64
	SolarPanel SolarPanel
	Type       SensorType
}

func (s Sensor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           int64      `json:"id"`
		Type         SensorType `json:"type"`
		SolarPanelID int64      `json:"solar_panel_id"`
	}{s.ID, s.Type, s.SolarPanel.ID})
}

// Measurement is immutable once stored. RecordedAt is assigned by the database.
type Measurement struct {
	ID         int64
	Data       []byte
	RecordedAt time.Time
	Sensor     Sensor
}

// Plain decimal with optional exponent. ParseFloat alone also takes hex
// floats and underscores.
var decimalNumber = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// Value interprets Data according to the sensor type. ok is false for
// non-numeric types, unparsable payloads and non-finite numbers.
func (m Measurement) Value() (v float64, ok bool) {
	if !m.Sensor.Type.Numeric() {
		return 0, false
	}
	raw := strings.TrimSpace(string(m.Data))
	if !decimalNumber.MatchString(raw) {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (m Measurement) MarshalJSON() ([]byte, error) {
	out := struct {
		ID         int64    `json:"id"`
		Data       *float64 `json:"data"`
		RecordedAt int64    `json:"recorded_at"`
	}{ID: m.ID, RecordedAt: m.RecordedAt.UTC().UnixMilli()}
	if v, ok := m.Value(); ok {
		out.Data = &v
	}
	return json.Marshal(out)
}
