package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	authdomain "transapp-auth/internal/auth/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	identityrepo "transapp-auth/internal/identity/repository"
	"transapp-auth/internal/store"
)

// JoinRequest carries the encrypted credentials, the requested role, the first
// device, and optional profile fields of a new identity.
type JoinRequest struct {
	IdentityCiphertext string
	PasswordCiphertext string
	Role               string
	Device             DeviceInfo
	Profile            identitydomain.Profile
}

// LoginRequest carries encrypted credentials and the calling device.
type LoginRequest struct {
	IdentityCiphertext string
	PasswordCiphertext string
	Device             DeviceInfo
}

// Join creates an identity with its roles and first device and issues both
// tokens. Nothing is persisted unless every step succeeds.
func (s *Service) Join(ctx context.Context, req JoinRequest) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpJoin, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		if err := req.Profile.ValidateRequired(); err != nil {
			return fmt.Errorf("join: %w: %v", authdomain.ErrMalformedInput, err)
		}
		externalID, password, err := s.gate.DecryptCredentials(req.IdentityCiphertext, req.PasswordCiphertext)
		if err != nil {
			return err
		}
		if !identitydomain.ValidExternalID(externalID) {
			return fmt.Errorf("join: %w: invalid external id", authdomain.ErrMalformedInput)
		}
		existing, err := tx.Identities().GetByExternalID(ctx, externalID)
		if err != nil {
			return fmt.Errorf("join: lookup identity: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("join: %w: external id already registered", authdomain.ErrMalformedInput)
		}
		hash, err := s.gate.HashPassword(password)
		if err != nil {
			return err
		}
		identityToken, err := s.tokens.IssueIdentityToken(externalID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		ident := &identitydomain.Identity{
			ID:            uuid.New().String(),
			ExternalID:    externalID,
			PasswordHash:  hash,
			IdentityToken: identityToken,
			Active:        true,
			Profile:       req.Profile,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := ident.Validate(); err != nil {
			return fmt.Errorf("join: %w: %v", authdomain.ErrMalformedInput, err)
		}
		if err := tx.Identities().Create(ctx, ident); err != nil {
			if errors.Is(err, identityrepo.ErrDuplicateExternalID) {
				return fmt.Errorf("join: %w: %v", authdomain.ErrMalformedInput, err)
			}
			return fmt.Errorf("join: create identity: %w", err)
		}
		if err := s.roles.AssignJoinRoles(ctx, tx, ident.ID, req.Role); err != nil {
			return err
		}
		d, err := s.devices.Register(ctx, tx, ident.ID, req.Device.Name, req.Device.DeviceID, req.Device.PushAddress)
		if err != nil {
			return err
		}
		role, err := s.roles.ResolveRole(ctx, tx, ident.ID)
		if err != nil {
			return err
		}
		sessionToken, err := s.tokens.RotateSessionToken(ctx, tx, ident)
		if err != nil {
			return err
		}
		// Set last: a rolled-back identity must not be referenced by the audit row.
		tr.identityID, tr.deviceID = ident.ID, d.ID
		res.IdentityToken, res.SessionToken, res.Role = identityToken, sessionToken, role
		return nil
	})
	return res
}

// Login authenticates the credentials, rotates the session token, and returns
// it with the identity token. The push address is required. A known device
// gets it refreshed; an unseen device is registered, and when the identity is
// at its device limit the login fails with no token issued and no device stored.
func (s *Service) Login(ctx context.Context, req LoginRequest) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpLogin, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		if strings.TrimSpace(req.Device.PushAddress) == "" {
			return fmt.Errorf("login: %w: push address is required", authdomain.ErrMalformedInput)
		}
		ident, err := s.gate.Authenticate(ctx, tx, req.IdentityCiphertext, req.PasswordCiphertext)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		d, err := s.devices.Resolve(ctx, tx, ident.ID, req.Device.DeviceID, req.Device.Name)
		switch {
		case errors.Is(err, authdomain.ErrDeviceNotFound):
			d, err = s.devices.Register(ctx, tx, ident.ID, req.Device.Name, req.Device.DeviceID, req.Device.PushAddress)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := s.devices.SetPushAddress(ctx, tx, d, req.Device.PushAddress); err != nil {
				return err
			}
		}
		tr.deviceID = d.ID
		role, err := s.roles.ResolveRole(ctx, tx, ident.ID)
		if err != nil {
			return err
		}
		sessionToken, err := s.tokens.RotateSessionToken(ctx, tx, ident)
		if err != nil {
			return err
		}
		res.IdentityToken, res.SessionToken, res.Role = ident.IdentityToken, sessionToken, role
		return nil
	})
	return res
}

// LoginByIdentityToken re-authenticates with a long-lived identity token and
// rotates the session token. When device.PushAddress is set it is written to
// the named device, or to the most recently used device when no name and id
// are given. An unmatched device leaves push addresses untouched.
func (s *Service) LoginByIdentityToken(ctx context.Context, identityToken string, device DeviceInfo) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpLoginByIdentityToken, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveIdentityToken(ctx, tx, identityToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		if device.PushAddress != "" {
			if err := s.refreshPushAddress(ctx, tx, tr, ident.ID, device); err != nil {
				return err
			}
		}
		role, err := s.roles.ResolveRole(ctx, tx, ident.ID)
		if err != nil {
			return err
		}
		sessionToken, err := s.tokens.RotateSessionToken(ctx, tx, ident)
		if err != nil {
			return err
		}
		res.SessionToken, res.Role = sessionToken, role
		return nil
	})
	return res
}

func (s *Service) refreshPushAddress(ctx context.Context, tx store.Tx, tr *trail, identityID string, device DeviceInfo) error {
	if device.Name == "" && device.DeviceID == "" {
		d, err := s.devices.Latest(ctx, tx, identityID)
		if err != nil || d == nil {
			return err
		}
		tr.deviceID = d.ID
		return s.devices.SetPushAddress(ctx, tx, d, device.PushAddress)
	}
	d, err := s.devices.Resolve(ctx, tx, identityID, device.DeviceID, device.Name)
	if errors.Is(err, authdomain.ErrDeviceNotFound) || errors.Is(err, authdomain.ErrMalformedInput) {
		return nil
	}
	if err != nil {
		return err
	}
	tr.deviceID = d.ID
	return s.devices.SetPushAddress(ctx, tx, d, device.PushAddress)
}

// Logout invalidates every session token of the identity owning sessionToken.
func (s *Service) Logout(ctx context.Context, sessionToken string) authdomain.Result {
	var res authdomain.Result
	s.execute(ctx, OpLogout, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		ident, err := s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		return s.tokens.InvalidateSessionTokens(ctx, tx, ident.ID)
	})
	return res
}

// ResolveSessionToken returns the active identity owning sessionToken.
func (s *Service) ResolveSessionToken(ctx context.Context, sessionToken string) (*identitydomain.Identity, authdomain.Result) {
	var (
		res   authdomain.Result
		ident *identitydomain.Identity
	)
	s.execute(ctx, OpResolveSessionToken, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		var err error
		ident, err = s.tokens.ResolveSessionToken(ctx, tx, sessionToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		return nil
	})
	if !res.OK() {
		return nil, res
	}
	return ident, res
}

// ResolveIdentityToken returns the active identity holding identityToken.
func (s *Service) ResolveIdentityToken(ctx context.Context, identityToken string) (*identitydomain.Identity, authdomain.Result) {
	var (
		res   authdomain.Result
		ident *identitydomain.Identity
	)
	s.execute(ctx, OpResolveIdentityToken, &res, func(ctx context.Context, tx store.Tx, tr *trail) error {
		var err error
		ident, err = s.tokens.ResolveIdentityToken(ctx, tx, identityToken)
		if err != nil {
			return err
		}
		tr.identityID = ident.ID
		return nil
	})
	if !res.OK() {
		return nil, res
	}
	return ident, res
}
