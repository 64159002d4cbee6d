package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	auditdomain "transapp-auth/internal/audit/domain"
	devicedomain "transapp-auth/internal/device/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	identityrepo "transapp-auth/internal/identity/repository"
	roledomain "transapp-auth/internal/role/domain"
	sessiontokendomain "transapp-auth/internal/sessiontoken/domain"
)

// Repositories below run only inside WithTx, so s.mu is already held.

type identityRepository struct {
	store *Store
}

func (r *identityRepository) find(op string, match func(identitydomain.Identity) bool) (*identitydomain.Identity, error) {
	if err := r.store.fault(op); err != nil {
		return nil, err
	}
	for _, i := range r.store.st.identities {
		if match(i) {
			out := i
			return &out, nil
		}
	}
	return nil, nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*identitydomain.Identity, error) {
	return r.find("identities.get", func(i identitydomain.Identity) bool { return i.ID == id })
}

func (r *identityRepository) GetByExternalID(ctx context.Context, externalID string) (*identitydomain.Identity, error) {
	return r.find("identities.get", func(i identitydomain.Identity) bool { return i.ExternalID == externalID })
}

func (r *identityRepository) GetActiveByExternalID(ctx context.Context, externalID string) (*identitydomain.Identity, error) {
	return r.find("identities.get", func(i identitydomain.Identity) bool { return i.Active && i.ExternalID == externalID })
}

func (r *identityRepository) GetActiveByIdentityToken(ctx context.Context, token string) (*identitydomain.Identity, error) {
	return r.find("identities.get", func(i identitydomain.Identity) bool { return i.Active && i.IdentityToken == token })
}

func (r *identityRepository) LockByID(ctx context.Context, id string) (*identitydomain.Identity, error) {
	if err := r.store.fault("identities.lock"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *identityRepository) CountByCarNo(ctx context.Context, carNo string) (int, error) {
	if err := r.store.fault("identities.count"); err != nil {
		return 0, err
	}
	n := 0
	for _, i := range r.store.st.identities {
		if i.Profile.CarNo == carNo {
			n++
		}
	}
	return n, nil
}

func (r *identityRepository) Create(ctx context.Context, i *identitydomain.Identity) error {
	if err := r.store.fault("identities.create"); err != nil {
		return err
	}
	for _, existing := range r.store.st.identities {
		if existing.ExternalID == i.ExternalID || existing.IdentityToken == i.IdentityToken {
			return identityrepo.ErrDuplicateExternalID
		}
	}
	r.store.st.identities[i.ID] = *i
	return nil
}

func (r *identityRepository) update(op, id string, fn func(*identitydomain.Identity)) error {
	if err := r.store.fault(op); err != nil {
		return err
	}
	i, ok := r.store.st.identities[id]
	if !ok {
		return nil
	}
	fn(&i)
	r.store.st.identities[id] = i
	return nil
}

func (r *identityRepository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return r.update("identities.update", id, func(i *identitydomain.Identity) {
		i.PasswordHash = hash
		i.UpdatedAt = at
	})
}

func (r *identityRepository) UpdateProfile(ctx context.Context, id string, p identitydomain.Profile, at time.Time) error {
	return r.update("identities.update", id, func(i *identitydomain.Identity) {
		i.Profile = p
		i.UpdatedAt = at
	})
}

func (r *identityRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	return r.update("identities.update", id, func(i *identitydomain.Identity) {
		i.Active = active
		i.UpdatedAt = at
	})
}

// Delete cascades to devices, session tokens, and role assignments, and
// detaches audit logs, mirroring the foreign keys of the SQL schema.
func (r *identityRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.fault("identities.delete"); err != nil {
		return err
	}
	st := r.store.st
	delete(st.identities, id)
	for k, d := range st.devices {
		if d.IdentityID == id {
			delete(st.devices, k)
			delete(st.deviceSeq, k)
		}
	}
	for k, t := range st.tokens {
		if t.IdentityID == id {
			delete(st.tokens, k)
		}
	}
	delete(st.assignments, id)
	r.store.audit.detach(id)
	return nil
}

type deviceRepository struct {
	store *Store
}

func (r *deviceRepository) GetByIdentityNameFingerprint(ctx context.Context, identityID, name, fingerprint string) (*devicedomain.Device, error) {
	if err := r.store.fault("devices.get"); err != nil {
		return nil, err
	}
	for _, d := range r.listLocked(identityID) {
		if d.Name == name && d.Fingerprint == fingerprint {
			return d, nil
		}
	}
	return nil, nil
}

func (r *deviceRepository) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	if err := r.store.fault("devices.count"); err != nil {
		return 0, err
	}
	return len(r.listLocked(identityID)), nil
}

func (r *deviceRepository) ListByIdentity(ctx context.Context, identityID string) ([]*devicedomain.Device, error) {
	if err := r.store.fault("devices.list"); err != nil {
		return nil, err
	}
	return r.listLocked(identityID), nil
}

func (r *deviceRepository) Latest(ctx context.Context, identityID string) (*devicedomain.Device, error) {
	if err := r.store.fault("devices.get"); err != nil {
		return nil, err
	}
	var latest *devicedomain.Device
	var latestSeq int64
	for _, d := range r.listLocked(identityID) {
		if seq := r.store.st.deviceSeq[d.ID]; latest == nil || seq > latestSeq {
			latest, latestSeq = d, seq
		}
	}
	return latest, nil
}

func (r *deviceRepository) Create(ctx context.Context, d *devicedomain.Device) error {
	if err := r.store.fault("devices.create"); err != nil {
		return err
	}
	st := r.store.st
	st.devices[d.ID] = *d
	st.seq++
	st.deviceSeq[d.ID] = st.seq
	return nil
}

func (r *deviceRepository) UpdatePushAddress(ctx context.Context, id, pushAddress string, at time.Time) error {
	if err := r.store.fault("devices.update"); err != nil {
		return err
	}
	st := r.store.st
	d, ok := st.devices[id]
	if !ok {
		return nil
	}
	d.PushAddress = pushAddress
	d.UpdatedAt = at
	st.devices[id] = d
	st.seq++
	st.deviceSeq[id] = st.seq
	return nil
}

func (r *deviceRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.fault("devices.delete"); err != nil {
		return err
	}
	delete(r.store.st.devices, id)
	delete(r.store.st.deviceSeq, id)
	return nil
}

// listLocked returns copies of the identity's devices in creation order.
func (r *deviceRepository) listLocked(identityID string) []*devicedomain.Device {
	var out []*devicedomain.Device
	for _, d := range r.store.st.devices {
		if d.IdentityID == identityID {
			c := d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type sessionTokenRepository struct {
	store *Store
}

func (r *sessionTokenRepository) Create(ctx context.Context, t *sessiontokendomain.SessionToken) error {
	if err := r.store.fault("session_tokens.create"); err != nil {
		return err
	}
	r.store.st.tokens[t.TokenHash] = *t
	return nil
}

func (r *sessionTokenRepository) DeleteAllByIdentity(ctx context.Context, identityID string) (int, error) {
	if err := r.store.fault("session_tokens.delete"); err != nil {
		return 0, err
	}
	n := 0
	for k, t := range r.store.st.tokens {
		if t.IdentityID == identityID {
			delete(r.store.st.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *sessionTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*sessiontokendomain.SessionToken, error) {
	if err := r.store.fault("session_tokens.get"); err != nil {
		return nil, err
	}
	t, ok := r.store.st.tokens[tokenHash]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *sessionTokenRepository) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	if err := r.store.fault("session_tokens.count"); err != nil {
		return 0, err
	}
	n := 0
	for _, t := range r.store.st.tokens {
		if t.IdentityID == identityID {
			n++
		}
	}
	return n, nil
}

type roleRepository struct {
	store *Store
}

func (r *roleRepository) MaxRoleID(ctx context.Context, identityID string) (int, error) {
	if err := r.store.fault("roles.max"); err != nil {
		return 0, err
	}
	maxID := 0
	for id := range r.store.st.assignments[identityID] {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*roledomain.Role, error) {
	if err := r.store.fault("roles.get"); err != nil {
		return nil, err
	}
	for _, role := range r.store.st.roles {
		if role.Name == name {
			out := role
			out.Permissions = append([]string(nil), role.Permissions...)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *roleRepository) Assign(ctx context.Context, identityID string, roleID int) error {
	if err := r.store.fault("roles.assign"); err != nil {
		return err
	}
	m := r.store.st.assignments[identityID]
	if m == nil {
		m = make(map[int]bool)
		r.store.st.assignments[identityID] = m
	}
	m[roleID] = true
	return nil
}

func (r *roleRepository) ListPermissions(ctx context.Context, identityID string) ([]string, error) {
	if err := r.store.fault("roles.permissions"); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for id := range r.store.st.assignments[identityID] {
		for _, p := range r.store.st.roles[id].Permissions {
			set[p] = true
		}
	}
	return sortedKeys(set, func(a, b string) bool { return a < b }), nil
}

func (r *roleRepository) UpsertRole(ctx context.Context, role *roledomain.Role) error {
	if err := r.store.fault("roles.upsert"); err != nil {
		return err
	}
	c := *role
	c.Permissions = append([]string(nil), role.Permissions...)
	r.store.st.roles[role.ID] = c
	return nil
}

type registryRepository struct {
	store *Store
}

func (r *registryRepository) Get(ctx context.Context, section, key string) (string, bool, error) {
	if err := r.store.fault("registry.get"); err != nil {
		return "", false, err
	}
	v, ok := r.store.st.settings[settingKey{section, key}]
	return v, ok, nil
}

func (r *registryRepository) Set(ctx context.Context, section, key, value string) error {
	if err := r.store.fault("registry.set"); err != nil {
		return err
	}
	r.store.st.settings[settingKey{section, key}] = value
	return nil
}

// auditRepository is not transactional; it has its own lock.
type auditRepository struct {
	store *Store
	mu    sync.Mutex
	logs  []*auditdomain.AuditLog
}

func (r *auditRepository) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	if err := r.store.fault("audit.create"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.logs = append(r.logs, &c)
	return nil
}

func (r *auditRepository) ListByIdentity(ctx context.Context, identityID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	if err := r.store.fault("audit.list"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*auditdomain.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].IdentityID == identityID {
			c := *r.logs[i]
			matched = append(matched, &c)
		}
	}
	if int(offset) >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && int(limit) < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *auditRepository) detach(identityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.logs {
		if a.IdentityID == identityID {
			a.IdentityID = ""
		}
	}
}
