package service

import (
	"context"
	"fmt"

	auditdomain "transapp-auth/internal/audit/domain"
	authdomain "transapp-auth/internal/auth/domain"
	devicedomain "transapp-auth/internal/device/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	"transapp-auth/internal/store"
)

// Overview is the role tier, permission set, and vehicle of an identity.
// FilledRequired is false until the profile has every field join requires.
type Overview struct {
	ExternalID     string
	Role           int
	Permissions    []string
	CarNo          string
	Prefix         string
	FilledRequired bool
}

// RemoveDevice deletes the caller's named device. Every session token of the
// identity, including the one presented, stops working.
func (s *Service) RemoveDevice(ctx context.Context, sessionToken string, device DeviceInfo) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpRemoveDevice, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		return s.devices.Remove(ctx, tx, ident.ID, device.DeviceID, device.Name)
	})
	return res
}

// SetPassword replaces the password of the identity owning sessionToken.
func (s *Service) SetPassword(ctx context.Context, sessionToken, passwordCiphertext string) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpSetPassword, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		return s.replacePassword(ctx, tx, ident, passwordCiphertext)
	})
	return res
}

// SetPasswordByIdentity replaces the password of the identity named by the
// encrypted external identifier. An unknown identity is Unauthorized.
func (s *Service) SetPasswordByIdentity(ctx context.Context, identityCiphertext, passwordCiphertext string) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpSetPasswordByIdentity, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		externalID, _, err := s.gate.DecryptCredentials(identityCiphertext, passwordCiphertext)
		if err != nil {
			return err
		}
		ident, err := tx.Identities().GetActiveByExternalID(ctx, externalID)
		if err != nil {
			return fmt.Errorf("set password: lookup identity: %w", err)
		}
		if ident == nil {
			return authdomain.ErrUnauthorized
		}
		tr.identityID = ident.ID
		return s.replacePassword(ctx, tx, ident, passwordCiphertext)
	})
	return res
}

func (s *Service) replacePassword(ctx context.Context, tx store.Tx, ident *identitydomain.Identity, passwordCiphertext string) error {
	password, err := s.gate.DecryptPassword(passwordCiphertext)
	if err != nil {
		return err
	}
	hash, err := s.gate.HashPassword(password)
	if err != nil {
		return err
	}
	if err := tx.Identities().UpdatePasswordHash(ctx, ident.ID, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("set password: update: %w", err)
	}
	return nil
}

// SetPushAddress updates the push address of the caller's named device.
func (s *Service) SetPushAddress(ctx context.Context, sessionToken string, device DeviceInfo) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpSetPushAddress, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		d, err := s.devices.Resolve(ctx, tx, ident.ID, device.DeviceID, device.Name)
		if err != nil {
			return err
		}
		tr.deviceID = d.ID
		return s.devices.SetPushAddress(ctx, tx, d, device.PushAddress)
	})
	return res
}

// GetPushAddress returns the push address of the caller's named device.
func (s *Service) GetPushAddress(ctx context.Context, sessionToken string, device DeviceInfo) (string, authdomain.Result) {
	var (
		res  authdomain.Result
		push string
	)
	s.execute(ctx, OpGetPushAddress, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		push, err = s.devices.PushAddress(ctx, tx, ident.ID, device.DeviceID, device.Name)
		return err
	})
	if !res.OK() {
		return "", res
	}
	return push, res
}

// GetProfile returns the profile of the identity owning sessionToken.
func (s *Service) GetProfile(ctx context.Context, sessionToken string) (*identitydomain.Profile, authdomain.Result) {
	var (
		res     authdomain.Result
		profile identitydomain.Profile
	)
	s.execute(ctx, OpGetProfile, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		profile = ident.Profile
		return nil
	})
	if !res.OK() {
		return nil, res
	}
	return &profile, res
}

// UpdateProfile applies the non-empty fields of update to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, sessionToken string, update identitydomain.Profile) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpUpdateProfile, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		if update.Email != "" && !identitydomain.ValidEmail(update.Email) {
			return fmt.Errorf("update profile: %w: invalid email format", authdomain.ErrMalformedInput)
		}
		profile := ident.Profile
		profile.Merge(update)
		if err := tx.Identities().UpdateProfile(ctx, ident.ID, profile, s.now().UTC()); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
	return res
}

// CancelIdentity hard-deletes the caller's identity together with its devices,
// session tokens, and role assignments.
func (s *Service) CancelIdentity(ctx context.Context, sessionToken string) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpCancelIdentity, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		// Tokens may live outside the relational store, where the delete cascade does not reach.
		if err := s.tokens.InvalidateSessionTokens(ctx, tx, ident.ID); err != nil {
			return err
		}
		if err := tx.Identities().Delete(ctx, ident.ID); err != nil {
			return fmt.Errorf("cancel identity: %w", err)
		}
		tr.detached = true
		return nil
	})
	return res
}

// IsFeatureAllowed succeeds when the caller may use permission and reports
// Forbidden otherwise.
func (s *Service) IsFeatureAllowed(ctx context.Context, sessionToken, permission string) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpIsFeatureAllowed, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		ok, err := s.features.Allowed(ctx, tx, ident.ID, permission)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("feature %q: %w", permission, authdomain.ErrForbidden)
		}
		return nil
	})
	return res
}

// Overview returns the caller's role tier and permissions.
func (s *Service) Overview(ctx context.Context, sessionToken string) (*Overview, authdomain.Result) {
	var (
		res authdomain.Result
		ov  Overview
	)
	s.execute(ctx, OpOverview, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		ov.ExternalID = ident.ExternalID
		ov.CarNo, ov.Prefix = ident.Profile.CarNo, ident.Profile.Prefix
		ov.FilledRequired = ident.Profile.FilledRequired()
		if ov.Role, err = s.roles.ResolveRole(ctx, tx, ident.ID); err != nil {
			return err
		}
		ov.Permissions, err = s.roles.Permissions(ctx, tx, ident.ID)
		return err
	})
	if !res.OK() {
		return nil, res
	}
	res.Role = ov.Role
	return &ov, res
}

// SetDeviceLimit stores the per-identity device cap. It is an operator action
// and takes no session token.
func (s *Service) SetDeviceLimit(ctx context.Context, limit int) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpSetDeviceLimit, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		return s.limits.SetDeviceLimit(ctx, tx, limit)
	})
	return res
}

// IsUniqueCarNo succeeds when carNo can still be registered. At most
// MaxCarNoHolders identities share a car number; a caller already holding
// carNo passes while the limit is not exceeded. sessionToken may be empty for
// callers that have not joined yet.
func (s *Service) IsUniqueCarNo(ctx context.Context, sessionToken, carNo string) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpIsUniqueCarNo, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		if !identitydomain.ValidCarNo(carNo) {
			return fmt.Errorf("car no: %w: must be non-empty without spaces", authdomain.ErrMalformedInput)
		}
		holders, err := tx.Identities().CountByCarNo(ctx, carNo)
		if err != nil {
			return fmt.Errorf("car no: count: %w", err)
		}
		if sessionToken != "" {
			ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
			if err != nil {
				return err
			}
			tr.identityID = ident.ID
			if ident.Profile.CarNo == carNo && holders <= identitydomain.MaxCarNoHolders {
				return nil
			}
		}
		if holders >= identitydomain.MaxCarNoHolders {
			return fmt.Errorf("car no: %d holders: %w", holders, authdomain.ErrCarNoTaken)
		}
		return nil
	})
	return res
}

// SetIdentityActive enables or disables the identity with externalID. It is an
// operator action. Disabling drops every session token; a disabled identity
// cannot log in or resolve tokens until enabled again.
func (s *Service) SetIdentityActive(ctx context.Context, externalID string, active bool) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpSetIdentityActive, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := tx.Identities().GetByExternalID(ctx, externalID)
		if err != nil {
			return fmt.Errorf("set active: lookup identity: %w", err)
		}
		if ident == nil {
			return authdomain.ErrUnauthorized
		}
		tr.identityID = ident.ID
		if _, err := tx.Identities().LockByID(ctx, ident.ID); err != nil {
			return fmt.Errorf("set active: lock: %w", err)
		}
		if err := tx.Identities().SetActive(ctx, ident.ID, active, s.now().UTC()); err != nil {
			return fmt.Errorf("set active: %w", err)
		}
		if active {
			return nil
		}
		return s.tokens.InvalidateSessionTokens(ctx, tx, ident.ID)
	})
	return res
}

// ListDevices returns the caller's devices, oldest first.
func (s *Service) ListDevices(ctx context.Context, sessionToken string) ([]*devicedomain.Device, authdomain.Result) {
	var (
		res     authdomain.Result
		devices []*devicedomain.Device
	)
	s.execute(ctx, OpListDevices, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		devices, err = s.devices.List(ctx, tx, ident.ID)
		return err
	})
	if !res.OK() {
		return nil, res
	}
	return devices, res
}

// AuditTrail returns up to limit audit logs of the identity with externalID,
// newest first. It is an operator action.
func (s *Service) AuditTrail(ctx context.Context, externalID string, limit int32) ([]*auditdomain.AuditLog, authdomain.Result) {
	var (
		res  authdomain.Result
		logs []*auditdomain.AuditLog
	)
	s.execute(ctx, OpAuditTrail, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		if limit <= 0 {
			return fmt.Errorf("audit trail: %w: limit must be positive", authdomain.ErrMalformedInput)
		}
		ident, err := tx.Identities().GetByExternalID(ctx, externalID)
		if err != nil {
			return fmt.Errorf("audit trail: lookup identity: %w", err)
		}
		if ident == nil {
			return authdomain.ErrUnauthorized
		}
		tr.identityID = ident.ID
		logs, err = s.store.Audit().ListByIdentity(ctx, ident.ID, limit, 0)
		if err != nil {
			return fmt.Errorf("audit trail: %w", err)
		}
		return nil
	})
	if !res.OK() {
		return nil, res
	}
	return logs, res
}
