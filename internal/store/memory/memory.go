// Package memory is an in-process implementation of store.Store for tests and
// local tooling. One mutex serializes all units of work; a failed unit of work
// restores the snapshot taken when it began.
package memory

import (
	"context"
	"sort"
	"sync"

	auditdomain "transapp-auth/internal/audit/domain"
	auditrepo "transapp-auth/internal/audit/repository"
	devicedomain "transapp-auth/internal/device/domain"
	devicerepo "transapp-auth/internal/device/repository"
	identitydomain "transapp-auth/internal/identity/domain"
	identityrepo "transapp-auth/internal/identity/repository"
	registryrepo "transapp-auth/internal/registry/repository"
	roledomain "transapp-auth/internal/role/domain"
	rolerepo "transapp-auth/internal/role/repository"
	sessiontokendomain "transapp-auth/internal/sessiontoken/domain"
	sessiontokenrepo "transapp-auth/internal/sessiontoken/repository"
	"transapp-auth/internal/store"
)

type settingKey struct {
	section, key string
}

type state struct {
	identities  map[string]identitydomain.Identity
	devices     map[string]devicedomain.Device
	deviceSeq   map[string]int64
	seq         int64
	tokens      map[string]sessiontokendomain.SessionToken
	roles       map[int]roledomain.Role
	assignments map[string]map[int]bool
	settings    map[settingKey]string
}

func newState() *state {
	return &state{
		identities:  make(map[string]identitydomain.Identity),
		devices:     make(map[string]devicedomain.Device),
		deviceSeq:   make(map[string]int64),
		tokens:      make(map[string]sessiontokendomain.SessionToken),
		roles:       make(map[int]roledomain.Role),
		assignments: make(map[string]map[int]bool),
		settings:    make(map[settingKey]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.identities {
		c.identities[k] = v
	}
	for k, v := range s.devices {
		c.devices[k] = v
	}
	for k, v := range s.deviceSeq {
		c.deviceSeq[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.roles {
		v.Permissions = append([]string(nil), v.Permissions...)
		c.roles[k] = v
	}
	for k, v := range s.assignments {
		m := make(map[int]bool, len(v))
		for r := range v {
			m[r] = true
		}
		c.assignments[k] = m
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	return c
}

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex
	st *state

	faultMu sync.Mutex
	faults  map[string]error

	audit *auditRepository
}

// New returns an empty Store.
func New() *Store {
	s := &Store{st: newState(), faults: make(map[string]error)}
	s.audit = &auditRepository{store: s}
	return s
}

// Fail makes every later call to op return err until cleared with a nil err.
// Op names have the form "<repository>.<method>", for example "devices.create".
func (s *Store) Fail(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

// WithTx runs fn while holding the store lock. If fn returns an error every
// change it made is discarded.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(ctx, &tx{store: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Audit returns the in-memory audit repository.
func (s *Store) Audit() auditrepo.Repository {
	return s.audit
}

// AuditLogs returns a copy of every recorded audit log, oldest first.
func (s *Store) AuditLogs() []auditdomain.AuditLog {
	s.audit.mu.Lock()
	defer s.audit.mu.Unlock()
	out := make([]auditdomain.AuditLog, len(s.audit.logs))
	for i, a := range s.audit.logs {
		out[i] = *a
	}
	return out
}

// SetSetting writes a registry value outside any unit of work.
func (s *Store) SetSetting(section, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings[settingKey{section, key}] = value
}

// PutRole creates or replaces a role outside any unit of work.
func (s *Store) PutRole(r roledomain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Permissions = append([]string(nil), r.Permissions...)
	s.st.roles[r.ID] = r
}

type tx struct {
	store *Store
}

func (t *tx) Identities() identityrepo.Repository { return &identityRepository{store: t.store} }
func (t *tx) Devices() devicerepo.Repository { return &deviceRepository{store: t.store} }
func (t *tx) SessionTokens() sessiontokenrepo.Repository { return &sessionTokenRepository{store: t.store} }
func (t *tx) Roles() rolerepo.Repository { return &roleRepository{store: t.store} }
func (t *tx) Registry() registryrepo.Repository { return &registryRepository{store: t.store} }

func sortedKeys[K comparable](m map[K]bool, less func(a, b K) bool) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
