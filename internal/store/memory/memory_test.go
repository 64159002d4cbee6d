package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	auditdomain "transapp-auth/internal/audit/domain"
	devicedomain "transapp-auth/internal/device/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	identityrepo "transapp-auth/internal/identity/repository"
	roledomain "transapp-auth/internal/role/domain"
	sessiontokendomain "transapp-auth/internal/sessiontoken/domain"
	"transapp-auth/internal/store"
)

func seedIdentity(t *testing.T, s *Store, id, ext string) {
	t.Helper()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Identities().Create(ctx, &identitydomain.Identity{
			ID: id, ExternalID: ext, PasswordHash: "h", IdentityToken: ext + "-tok", Active: true,
		})
	})
	if err != nil {
		t.Fatalf("seed identity: %v", err)
	}
}

func TestStore_RollbackRestoresSnapshot(t *testing.T) {
	s := New()
	seedIdentity(t, s, "id-1", "01012345678")
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.Devices().Create(ctx, &devicedomain.Device{ID: "d1", IdentityID: "id-1", Name: "p"}); err != nil {
			return err
		}
		if err := tx.Roles().Assign(ctx, "id-1", 2); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	_ = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if n, _ := tx.Devices().CountByIdentity(ctx, "id-1"); n != 0 {
			t.Errorf("device count after rollback = %d, want 0", n)
		}
		if id, _ := tx.Roles().MaxRoleID(ctx, "id-1"); id != 0 {
			t.Errorf("max role after rollback = %d, want 0", id)
		}
		return nil
	})
}

func TestStore_DuplicateExternalID(t *testing.T) {
	s := New()
	seedIdentity(t, s, "id-1", "01012345678")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Identities().Create(ctx, &identitydomain.Identity{ID: "id-2", ExternalID: "01012345678", IdentityToken: "other"})
	})
	if !errors.Is(err, identityrepo.ErrDuplicateExternalID) {
		t.Errorf("err = %v, want ErrDuplicateExternalID", err)
	}
}

func TestStore_DeleteCascades(t *testing.T) {
	s := New()
	seedIdentity(t, s, "id-1", "01012345678")
	ctx := context.Background()
	_ = s.Audit().Create(ctx, &auditdomain.AuditLog{ID: "a1", IdentityID: "id-1", Action: "join"})

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_ = tx.Devices().Create(ctx, &devicedomain.Device{ID: "d1", IdentityID: "id-1"})
		_ = tx.SessionTokens().Create(ctx, &sessiontokendomain.SessionToken{ID: "t1", IdentityID: "id-1", TokenHash: "h"})
		_ = tx.Roles().Assign(ctx, "id-1", 3)
		return tx.Identities().Delete(ctx, "id-1")
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	_ = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if n, _ := tx.Devices().CountByIdentity(ctx, "id-1"); n != 0 {
			t.Errorf("devices = %d", n)
		}
		if n, _ := tx.SessionTokens().CountByIdentity(ctx, "id-1"); n != 0 {
			t.Errorf("tokens = %d", n)
		}
		if id, _ := tx.Roles().MaxRoleID(ctx, "id-1"); id != 0 {
			t.Errorf("role = %d", id)
		}
		return nil
	})
	logs := s.AuditLogs()
	if len(logs) != 1 || logs[0].IdentityID != "" {
		t.Errorf("audit logs = %+v, want one detached entry", logs)
	}
}

func TestStore_LatestTracksUpdates(t *testing.T) {
	s := New()
	seedIdentity(t, s, "id-1", "01012345678")
	now := time.Now()
	_ = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_ = tx.Devices().Create(ctx, &devicedomain.Device{ID: "d1", IdentityID: "id-1", CreatedAt: now})
		_ = tx.Devices().Create(ctx, &devicedomain.Device{ID: "d2", IdentityID: "id-1", CreatedAt: now})
		if d, _ := tx.Devices().Latest(ctx, "id-1"); d == nil || d.ID != "d2" {
			t.Errorf("Latest = %+v, want d2", d)
		}
		_ = tx.Devices().UpdatePushAddress(ctx, "d1", "new", now)
		if d, _ := tx.Devices().Latest(ctx, "id-1"); d == nil || d.ID != "d1" || d.PushAddress != "new" {
			t.Errorf("Latest after update = %+v, want d1", d)
		}
		return nil
	})
}

func TestStore_FailInjectsErrors(t *testing.T) {
	s := New()
	boom := errors.New("db down")
	s.Fail("devices.count", boom)
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Devices().CountByIdentity(ctx, "x")
		return err
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want injected error", err)
	}
	s.Fail("devices.count", nil)
	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Devices().CountByIdentity(ctx, "x")
		return err
	})
	if err != nil {
		t.Errorf("err after clear = %v", err)
	}
}

func TestStore_PermissionsUnion(t *testing.T) {
	s := New()
	s.PutRole(roledomain.Role{ID: 1, Name: "a", Permissions: []string{"x", "y"}})
	s.PutRole(roledomain.Role{ID: 2, Name: "b", Permissions: []string{"y", "z"}})
	_ = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_ = tx.Roles().Assign(ctx, "id-1", 1)
		_ = tx.Roles().Assign(ctx, "id-1", 2)
		perms, err := tx.Roles().ListPermissions(ctx, "id-1")
		if err != nil {
			t.Fatalf("ListPermissions: %v", err)
		}
		if len(perms) != 3 || perms[0] != "x" || perms[2] != "z" {
			t.Errorf("perms = %v", perms)
		}
		return nil
	})
}

func TestStore_SerializesUnitsOfWork(t *testing.T) {
	s := New()
	s.SetSetting("user", "device_limit", "3")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
				v, _, _ := tx.Registry().Get(ctx, "user", "counter")
				n := len(v)
				return tx.Registry().Set(ctx, "user", "counter", v+string(rune('a'+n%26)))
			})
		}()
	}
	wg.Wait()
	_ = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		v, _, _ := tx.Registry().Get(ctx, "user", "counter")
		if len(v) != 50 {
			t.Errorf("counter length = %d, want 50 (lost updates)", len(v))
		}
		return nil
	})
}
