package store

import (
	"context"
	"sync"
	"time"

	"lifeassistant/errs"
	"lifeassistant/models"
)

type memUser struct {
	dishes   []models.Dish
	slots    []models.ScheduleSlot
	settings *models.ExportSettings
}

// Memory keeps everything in process. It backs the test suite and the
// STORE_DRIVER=memory development mode.
type Memory struct {
	mu       sync.Mutex
	users    map[string]*memUser
	accounts map[string]models.User
	rev      int64
	pub      Publisher
}

func NewMemory(pub Publisher) *Memory {
	return &Memory{
		users:    make(map[string]*memUser),
		accounts: make(map[string]models.User),
		pub:      pub,
	}
}

// scope locks the store and returns the data of the calling user. The caller must
// unlock m.mu.
func (m *Memory) scope(ctx context.Context) (string, *memUser, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return "", nil, err
	}
	m.mu.Lock()
	u := m.users[uid]
	if u == nil {
		u = &memUser{}
		m.users[uid] = u
	}
	return uid, u, nil
}

func (m *Memory) nextRev() int64 {
	m.rev++
	return m.rev
}

func (m *Memory) publish(ctx context.Context, ev models.ChangeEvent) {
	if m.pub != nil {
		m.pub.Publish(ctx, ev)
	}
}

func (m *Memory) ListDishes(ctx context.Context) ([]models.Dish, error) {
	_, u, err := m.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := make([]models.Dish, 0, len(u.dishes))
	for _, d := range u.dishes {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (m *Memory) GetDish(ctx context.Context, id string) (models.Dish, error) {
	_, u, err := m.scope(ctx)
	if err != nil {
		return models.Dish{}, err
	}
	defer m.mu.Unlock()
	for _, d := range u.dishes {
		if d.ID == id {
			return d.Clone(), nil
		}
	}
	return models.Dish{}, errs.ErrNotFound
}

func (m *Memory) InsertDish(ctx context.Context, d models.Dish) (models.Dish, error) {
	uid, u, err := m.scope(ctx)
	if err != nil {
		return models.Dish{}, err
	}
	for _, existing := range u.dishes {
		if existing.ID == d.ID {
			m.mu.Unlock()
			return models.Dish{}, errs.ErrConflict
		}
	}
	d = d.Clone()
	d.UserID = uid
	d.Revision = m.nextRev()
	u.dishes = append(u.dishes, d)
	ev := dishEvent(models.OpInsert, d)
	m.mu.Unlock()

	m.publish(ctx, ev)
	return d.Clone(), nil
}

func (m *Memory) UpdateDish(ctx context.Context, d models.Dish) error {
	uid, u, err := m.scope(ctx)
	if err != nil {
		return err
	}
	for i := range u.dishes {
		if u.dishes[i].ID == d.ID {
			d = d.Clone()
			d.UserID = uid
			d.Revision = m.nextRev()
			u.dishes[i] = d
			ev := dishEvent(models.OpUpdate, d)
			m.mu.Unlock()
			m.publish(ctx, ev)
			return nil
		}
	}
	m.mu.Unlock()
	return errs.ErrNotFound
}

func (m *Memory) DeleteDish(ctx context.Context, id string) error {
	_, u, err := m.scope(ctx)
	if err != nil {
		return err
	}
	for i := range u.dishes {
		if u.dishes[i].ID == id {
			gone := u.dishes[i]
			gone.Revision = m.nextRev()
			u.dishes = append(u.dishes[:i], u.dishes[i+1:]...)
			ev := dishEvent(models.OpDelete, gone)
			m.mu.Unlock()
			m.publish(ctx, ev)
			return nil
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListSlots(ctx context.Context) ([]models.ScheduleSlot, error) {
	_, u, err := m.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := make([]models.ScheduleSlot, 0, len(u.slots))
	for _, s := range u.slots {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *Memory) FindSlot(ctx context.Context, key models.SlotKey) (models.ScheduleSlot, error) {
	_, u, err := m.scope(ctx)
	if err != nil {
		return models.ScheduleSlot{}, err
	}
	defer m.mu.Unlock()
	for _, s := range u.slots {
		if s.Key() == key {
			return s.Clone(), nil
		}
	}
	return models.ScheduleSlot{}, errs.ErrNotFound
}

func (m *Memory) InsertSlot(ctx context.Context, s models.ScheduleSlot) (models.ScheduleSlot, error) {
	uid, u, err := m.scope(ctx)
	if err != nil {
		return models.ScheduleSlot{}, err
	}
	for _, existing := range u.slots {
		if existing.ID == s.ID {
			m.mu.Unlock()
			return models.ScheduleSlot{}, errs.ErrConflict
		}
		if existing.Key() == s.Key() {
			m.mu.Unlock()
			return models.ScheduleSlot{}, errs.ErrSlotTaken
		}
	}
	s = s.Clone()
	s.UserID = uid
	s.Revision = m.nextRev()
	u.slots = append(u.slots, s)
	ev := slotEvent(models.OpInsert, s)
	m.mu.Unlock()

	m.publish(ctx, ev)
	return s.Clone(), nil
}

func (m *Memory) UpdateSlot(ctx context.Context, s models.ScheduleSlot) error {
	uid, u, err := m.scope(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i := range u.slots {
		switch {
		case u.slots[i].ID == s.ID:
			idx = i
		case u.slots[i].Key() == s.Key():
			m.mu.Unlock()
			return errs.ErrSlotTaken
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return errs.ErrNotFound
	}
	if u.slots[idx].Revision != s.Revision {
		m.mu.Unlock()
		return errs.ErrConflict
	}
	s = s.Clone()
	s.UserID = uid
	s.Revision = m.nextRev()
	u.slots[idx] = s
	ev := slotEvent(models.OpUpdate, s)
	m.mu.Unlock()

	m.publish(ctx, ev)
	return nil
}

func (m *Memory) DeleteSlot(ctx context.Context, s models.ScheduleSlot) error {
	_, u, err := m.scope(ctx)
	if err != nil {
		return err
	}
	for i := range u.slots {
		if u.slots[i].ID == s.ID {
			if u.slots[i].Revision != s.Revision {
				m.mu.Unlock()
				return errs.ErrConflict
			}
			gone := u.slots[i]
			gone.Revision = m.nextRev()
			u.slots = append(u.slots[:i], u.slots[i+1:]...)
			ev := slotEvent(models.OpDelete, gone)
			m.mu.Unlock()
			m.publish(ctx, ev)
			return nil
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[u.Username]; ok {
		return errs.ErrConflict
	}
	m.accounts[u.Username] = u
	return nil
}

func (m *Memory) FindUserByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.accounts[username]
	if !ok {
		return models.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (m *Memory) TouchLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, u := range m.accounts {
		if u.ID == userID {
			u.LastLogin = at
			m.accounts[name] = u
			return nil
		}
	}
	return errs.ErrNotFound
}

func (m *Memory) GetExportSettings(ctx context.Context) (models.ExportSettings, error) {
	uid, u, err := m.scope(ctx)
	if err != nil {
		return models.ExportSettings{}, err
	}
	defer m.mu.Unlock()
	if u.settings == nil {
		return models.DefaultExportSettings(uid), nil
	}
	return *u.settings, nil
}

func (m *Memory) SaveExportSettings(ctx context.Context, s models.ExportSettings) error {
	uid, u, err := m.scope(ctx)
	if err != nil {
		return err
	}
	defer m.mu.Unlock()
	s.UserID = uid
	u.settings = &s
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }
