package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- memServiceStore ---

// memServiceStore is an in-memory ServiceStore. Inserts do not upsert, so
// two unserialized reconciliations of the same name would leave two rows.
type memServiceStore struct {
	mu        sync.Mutex
	rows      map[int64]model.Service
	nextID    int64
	lists     int
	applies   int
	applyErr  error
	listHook  func(hostID int64)
	listError error
}

func newMemServiceStore() *memServiceStore {
	return &memServiceStore{rows: make(map[int64]model.Service), nextID: 1}
}

func (m *memServiceStore) seed(hostID int64, name, status string) model.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc := model.Service{ID: m.nextID, HostID: hostID, Name: name, Status: status}
	m.rows[svc.ID] = svc
	m.nextID++
	return svc
}

func (m *memServiceStore) ListByHost(_ context.Context, hostID int64) ([]model.Service, error) {
	m.mu.Lock()
	m.lists++
	hook := m.listHook
	m.mu.Unlock()

	if hook != nil {
		hook(hostID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listError != nil {
		return nil, m.listError
	}
	return m.byHostLocked(hostID), nil
}

func (m *memServiceStore) ApplyInventory(_ context.Context, hostID int64, changes driven.InventoryChanges) ([]model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applies++

	if m.applyErr != nil {
		return nil, m.applyErr
	}
	for _, svc := range changes.Updates {
		if _, ok := m.rows[svc.ID]; !ok {
			return nil, fmt.Errorf("row %d missing", svc.ID)
		}
	}

	for _, svc := range changes.Updates {
		m.rows[svc.ID] = svc
	}
	inserted := make([]model.Service, 0, len(changes.Inserts))
	for _, svc := range changes.Inserts {
		svc.ID = m.nextID
		svc.HostID = hostID
		m.nextID++
		m.rows[svc.ID] = svc
		inserted = append(inserted, svc)
	}
	return inserted, nil
}

func (m *memServiceStore) all(hostID int64) []model.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byHostLocked(hostID)
}

func (m *memServiceStore) byHostLocked(hostID int64) []model.Service {
	var out []model.Service
	for _, svc := range m.rows {
		if svc.HostID == hostID {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- mockHostStore ---

type mockHostStore struct {
	hosts  map[int64]model.Host
	nextID int64
	addErr error
	added  []model.Host
}

func newMockHostStore(hosts ...model.Host) *mockHostStore {
	m := &mockHostStore{hosts: make(map[int64]model.Host), nextID: 100}
	for _, h := range hosts {
		m.hosts[h.ID] = h
	}
	return m
}

func (m *mockHostStore) Add(_ context.Context, host model.Host) (model.Host, error) {
	if m.addErr != nil {
		return model.Host{}, m.addErr
	}
	for _, h := range m.hosts {
		if h.Address == host.Address {
			return model.Host{}, driven.ErrDuplicateHost
		}
	}
	host.ID = m.nextID
	m.nextID++
	m.hosts[host.ID] = host
	m.added = append(m.added, host)
	return host, nil
}

func (m *mockHostStore) Remove(_ context.Context, id int64) error {
	if _, ok := m.hosts[id]; !ok {
		return driven.ErrHostNotFound
	}
	delete(m.hosts, id)
	return nil
}

func (m *mockHostStore) GetByID(_ context.Context, id int64) (*model.Host, error) {
	h, ok := m.hosts[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *mockHostStore) ListByOwner(_ context.Context, ownerID int64) ([]model.Host, error) {
	var out []model.Host
	for _, h := range m.hosts {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// --- fakeVault ---

// fakeVault "seals" by reversing and prefixing; Decrypt rejects anything else.
type fakeVault struct{}

func (fakeVault) Encrypt(plaintext string) (string, error) {
	return "sealed:" + reverse(plaintext), nil
}

func (fakeVault) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "sealed:") {
		return "", errors.New("crypto error: not sealed by this vault")
	}
	return reverse(strings.TrimPrefix(ciphertext, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// --- mockOpener / mockSession ---

type mockSession struct {
	services []model.ObservedService
	listErr  error
	startErr error
	stopErr  error
	started  []string
	stopped  []string
	closed   bool
	closeErr error
}

func (s *mockSession) ListServices(_ context.Context) ([]model.ObservedService, error) {
	return s.services, s.listErr
}

func (s *mockSession) StartService(_ context.Context, name string) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	s.started = append(s.started, name)
	return fmt.Sprintf("Service '%s' started successfully.", name), nil
}

func (s *mockSession) StopService(_ context.Context, name string) (string, error) {
	if s.stopErr != nil {
		return "", s.stopErr
	}
	s.stopped = append(s.stopped, name)
	return fmt.Sprintf("Service '%s' stopped successfully.", name), nil
}

func (s *mockSession) Close() error {
	s.closed = true
	return s.closeErr
}

type mockOpener struct {
	session *mockSession
	openErr error
	targets []model.RemoteTarget
}

func (o *mockOpener) Open(_ context.Context, target model.RemoteTarget) (driven.Session, error) {
	o.targets = append(o.targets, target)
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.session, nil
}

// --- mockOwnerStore / mockTokenStore ---

type mockOwnerStore struct {
	owners map[int64]model.Owner
	nextID int64
}

func newMockOwnerStore() *mockOwnerStore {
	return &mockOwnerStore{owners: make(map[int64]model.Owner), nextID: 1}
}

func (m *mockOwnerStore) Add(_ context.Context, owner model.Owner) (model.Owner, error) {
	for _, o := range m.owners {
		if o.Username == owner.Username {
			return model.Owner{}, driven.ErrOwnerExists
		}
	}
	owner.ID = m.nextID
	m.nextID++
	m.owners[owner.ID] = owner
	return owner, nil
}

func (m *mockOwnerStore) GetByUsername(_ context.Context, username string) (*model.Owner, error) {
	for _, o := range m.owners {
		if o.Username == username {
			return &o, nil
		}
	}
	return nil, nil
}

func (m *mockOwnerStore) GetByID(_ context.Context, id int64) (*model.Owner, error) {
	o, ok := m.owners[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

type mockTokenStore struct {
	tokens map[string]model.APIToken
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]model.APIToken)}
}

func (m *mockTokenStore) Add(_ context.Context, token model.APIToken) error {
	m.tokens[token.Digest] = token
	return nil
}

func (m *mockTokenStore) Get(_ context.Context, digest string) (*model.APIToken, error) {
	t, ok := m.tokens[digest]
	if !ok {
		return nil, driven.ErrTokenNotFound
	}
	return &t, nil
}

func (m *mockTokenStore) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for k, t := range m.tokens {
		if t.Expired(now) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}
