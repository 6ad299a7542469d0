package http

import (
	"context"
	"errors"

	"github.com/arkanova/solar-monitor/internal/domain"
	"github.com/arkanova/solar-monitor/internal/repository"
	"github.com/arkanova/solar-monitor/internal/service"
)

var errDriver = errors.New("pq: connection to 10.0.0.5 refused")

type fakeUsers struct {
	byID     map[int64]domain.User
	lastPage domain.Page
	err      error
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, email, password string) (domain.User, error) {
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	for _, u := range f.byID {
		if u.Email == email {
			return domain.User{}, domain.ErrConflict
		}
	}
	u := domain.User{ID: int64(len(f.byID) + 1), Email: email, Password: password}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	if upd.Empty() {
		return domain.User{}, domain.ErrInvalidInput
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, page domain.Page) ([]domain.User, error) {
	f.lastPage = page
	out := []domain.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Count(context.Context) (int, error) { return len(f.byID), nil }

func (f *fakeUsers) VerifyCredentials(_ context.Context, email, password string) (domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email && u.Password == password {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

type fakePanels struct {
	byID  map[int64]domain.SolarPanel
	users *fakeUsers
}

func (f *fakePanels) FindByID(_ context.Context, id int64) (domain.SolarPanel, error) {
	p, ok := f.byID[id]
	if !ok {
		return domain.SolarPanel{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePanels) ListByUser(_ context.Context, userID int64, _ domain.Page) ([]domain.SolarPanel, error) {
	out := []domain.SolarPanel{}
	for _, p := range f.byID {
		if p.User.ID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePanels) CountByUser(ctx context.Context, userID int64) (int, error) {
	panels, err := f.ListByUser(ctx, userID, domain.Page{})
	return len(panels), err
}

func (f *fakePanels) Create(ctx context.Context, location string, userID int64) (domain.SolarPanel, error) {
	owner, err := f.users.FindByID(ctx, userID)
	if err != nil {
		return domain.SolarPanel{}, domain.ErrInvalidInput
	}
	p := domain.SolarPanel{ID: int64(len(f.byID) + 1), Location: location, User: owner}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakePanels) UpdateLocation(_ context.Context, id int64, location string) (domain.SolarPanel, error) {
	p, ok := f.byID[id]
	if !ok {
		return domain.SolarPanel{}, domain.ErrNotFound
	}
	p.Location = location
	f.byID[id] = p
	return p, nil
}

func (f *fakePanels) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeSensors struct {
	byID   map[int64]domain.Sensor
	panels *fakePanels
	types  map[int64]domain.SensorType
}

func (f *fakeSensors) FindByID(_ context.Context, id int64) (domain.Sensor, error) {
	s, ok := f.byID[id]
	if !ok {
		return domain.Sensor{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSensors) List(context.Context) ([]domain.Sensor, error) {
	out := []domain.Sensor{}
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSensors) ListByPanel(_ context.Context, panelID int64) ([]domain.Sensor, error) {
	out := []domain.Sensor{}
	for _, s := range f.byID {
		if s.SolarPanel.ID == panelID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSensors) Create(ctx context.Context, panelID, typeID int64) (domain.Sensor, error) {
	p, err := f.panels.FindByID(ctx, panelID)
	if err != nil {
		return domain.Sensor{}, domain.ErrInvalidInput
	}
	t, ok := f.types[typeID]
	if !ok {
		return domain.Sensor{}, domain.ErrInvalidInput
	}
	s := domain.Sensor{ID: int64(len(f.byID) + 1), SolarPanel: p, Type: t}
	f.byID[s.ID] = s
	return s, nil
}

func (f *fakeSensors) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeMeasurements struct {
	bySensor map[int64][]domain.Measurement
	lastRng  repository.TimeRange
	err      error
}

func (f *fakeMeasurements) FindByID(_ context.Context, id int64) (domain.Measurement, error) {
	if f.err != nil {
		return domain.Measurement{}, f.err
	}
	for _, ms := range f.bySensor {
		for _, m := range ms {
			if m.ID == id {
				return m, nil
			}
		}
	}
	return domain.Measurement{}, domain.ErrNotFound
}

func (f *fakeMeasurements) ListBySensor(_ context.Context, sensorID int64, rng repository.TimeRange) ([]domain.Measurement, error) {
	f.lastRng = rng
	out := []domain.Measurement{}
	return append(out, f.bySensor[sensorID]...), nil
}

func (f *fakeMeasurements) Latest(_ context.Context, sensorID int64) (domain.Measurement, error) {
	ms := f.bySensor[sensorID]
	if len(ms) == 0 {
		return domain.Measurement{}, domain.ErrNotFound
	}
	return ms[0], nil
}

type fakeSummary map[int64]map[string]service.TypeSummary

func (f fakeSummary) Summarize(_ context.Context, panelID int64, _ repository.TimeRange) (map[string]service.TypeSummary, error) {
	s, ok := f[panelID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

type fakeBackups struct {
	export   service.Backup
	imported []byte
	keys     []string
}

func (f *fakeBackups) Export(context.Context) (service.Backup, error) { return f.export, nil }

func (f *fakeBackups) Import(_ context.Context, dump []byte) error {
	if len(dump) == 0 {
		return domain.ErrInvalidInput
	}
	f.imported = append([]byte(nil), dump...)
	return nil
}

func (f *fakeBackups) ImportObject(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeBackups) List(context.Context) ([]string, error) { return f.keys, nil }
