package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	authdomain "transapp-auth/internal/auth/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	"transapp-auth/internal/security"
	"transapp-auth/internal/store"
	"transapp-auth/internal/store/memory"
)

func seed(t *testing.T) (*memory.Store, *identitydomain.Identity) {
	t.Helper()
	st := memory.New()
	ident := &identitydomain.Identity{ID: "id-1", ExternalID: "01012345678", PasswordHash: "h", IdentityToken: "01012345678-abc", Active: true}
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Identities().Create(ctx, ident)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return st, ident
}

func rotate(t *testing.T, st *memory.Store, m *Manager, ident *identitydomain.Identity) string {
	t.Helper()
	var tok string
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		tok, err = m.RotateSessionToken(ctx, tx, ident)
		return err
	})
	if err != nil {
		t.Fatalf("RotateSessionToken: %v", err)
	}
	return tok
}

func tokenCount(t *testing.T, st *memory.Store, identityID string) int {
	t.Helper()
	var n int
	_ = st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		n, _ = tx.SessionTokens().CountByIdentity(ctx, identityID)
		return nil
	})
	return n
}

func TestManager_IssueIdentityTokenFormat(t *testing.T) {
	tok, err := NewManager().IssueIdentityToken("01012345678")
	if err != nil {
		t.Fatalf("IssueIdentityToken: %v", err)
	}
	prefix, random, ok := strings.Cut(tok, "-")
	if !ok || prefix != "01012345678" || len(random) != security.TokenRandomLength {
		t.Errorf("token = %q, want 01012345678-<%d chars>", tok, security.TokenRandomLength)
	}
}

func TestManager_RotateLeavesExactlyOneToken(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	var prev string
	for i := 0; i < 4; i++ {
		tok := rotate(t, st, m, ident)
		if tok == prev {
			t.Fatal("rotation returned the same token twice")
		}
		prev = tok
		if n := tokenCount(t, st, ident.ID); n != 1 {
			t.Fatalf("after rotation %d: %d tokens, want 1", i, n)
		}
	}
}

func TestManager_RotatePersistsHashOnly(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	tok := rotate(t, st, m, ident)
	_ = st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if got, _ := tx.SessionTokens().GetByHash(ctx, tok); got != nil {
			t.Error("plaintext token stored as hash key")
		}
		got, _ := tx.SessionTokens().GetByHash(ctx, security.HashOneWay(tok))
		if got == nil || got.ID == "" {
			t.Errorf("GetByHash(hash) = %+v, want stored row with ULID id", got)
		}
		return nil
	})
}

func TestManager_ResolveSessionToken(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	first := rotate(t, st, m, ident)
	second := rotate(t, st, m, ident)

	resolve := func(tok string) error {
		return st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := m.ResolveSessionToken(ctx, tx, tok)
			return err
		})
	}
	if err := resolve(second); err != nil {
		t.Errorf("current token: %v", err)
	}
	if err := resolve(first); !errors.Is(err, authdomain.ErrUnauthorized) {
		t.Errorf("rotated-out token err = %v, want ErrUnauthorized", err)
	}
	if err := resolve(""); !errors.Is(err, authdomain.ErrUnauthorized) {
		t.Errorf("empty token err = %v, want ErrUnauthorized", err)
	}
}

func TestManager_ResolveIdentityToken(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		got, err := m.ResolveIdentityToken(ctx, tx, ident.IdentityToken)
		if err != nil || got.ID != ident.ID {
			t.Errorf("ResolveIdentityToken = %+v, %v", got, err)
		}
		_, err = m.ResolveIdentityToken(ctx, tx, "bogus")
		return err
	})
	if !errors.Is(err, authdomain.ErrUnauthorized) {
		t.Errorf("bogus token err = %v, want ErrUnauthorized", err)
	}
}

func TestManager_InvalidateSessionTokens(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	rotate(t, st, m, ident)
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return m.InvalidateSessionTokens(ctx, tx, ident.ID)
	})
	if err != nil {
		t.Fatalf("InvalidateSessionTokens: %v", err)
	}
	if n := tokenCount(t, st, ident.ID); n != 0 {
		t.Errorf("tokens = %d, want 0", n)
	}
}

func TestManager_RotateFailureRollsBack(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	first := rotate(t, st, m, ident)
	boom := errors.New("insert failed")
	st.Fail("session_tokens.create", boom)
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := m.RotateSessionToken(ctx, tx, ident)
		return err
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want insert failure", err)
	}
	st.Fail("session_tokens.create", nil)
	err = st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := m.ResolveSessionToken(ctx, tx, first)
		return err
	})
	if err != nil {
		t.Errorf("prior token lost after failed rotation: %v", err)
	}
}

func TestManager_ConcurrentRotation(t *testing.T) {
	st, ident := seed(t)
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
				_, err := m.RotateSessionToken(ctx, tx, ident)
				return err
			})
		}()
	}
	wg.Wait()
	if n := tokenCount(t, st, ident.ID); n != 1 {
		t.Errorf("tokens after concurrent rotation = %d, want 1", n)
	}
}

func TestManager_UnknownIdentity(t *testing.T) {
	st, _ := seed(t)
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := NewManager().RotateSessionToken(ctx, tx, &identitydomain.Identity{ID: "ghost"})
		return err
	})
	if !errors.Is(err, authdomain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
