package credential

import (
	"context"
	"errors"
	"strings"
	"testing"

	authdomain "transapp-auth/internal/auth/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	"transapp-auth/internal/security"
	"transapp-auth/internal/store"
	"transapp-auth/internal/store/memory"
)

// fakeDecrypter strips an "enc:" prefix; "fail" simulates an unavailable key service.
type fakeDecrypter struct{}

var errKeyService = errors.New("key service unavailable")

func (fakeDecrypter) Decrypt(ct string) (string, error) {
	if ct == "fail" {
		return "", errKeyService
	}
	if !strings.HasPrefix(ct, "enc:") {
		return "", security.ErrMalformedCiphertext
	}
	return strings.TrimPrefix(ct, "enc:"), nil
}

func newGateWithIdentity(t *testing.T, active bool) (*Gate, *memory.Store) {
	t.Helper()
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("s3cret"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	st := memory.New()
	err = st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Identities().Create(ctx, &identitydomain.Identity{
			ID: "id-1", ExternalID: "01012345678", PasswordHash: hash, IdentityToken: "tok", Active: active,
		})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewGate(fakeDecrypter{}, hasher), st
}

func authenticate(t *testing.T, g *Gate, st *memory.Store, idCT, pwCT string) (*identitydomain.Identity, error) {
	t.Helper()
	var got *identitydomain.Identity
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		got, err = g.Authenticate(ctx, tx, idCT, pwCT)
		return err
	})
	return got, err
}

func TestGate_Authenticate_Success(t *testing.T) {
	g, st := newGateWithIdentity(t, true)
	got, err := authenticate(t, g, st, "enc:01012345678", "enc:s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != "id-1" {
		t.Errorf("identity = %q, want id-1", got.ID)
	}
}

func TestGate_Authenticate_InvalidCredential(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		id, pw string
	}{
		{"wrong password", true, "enc:01012345678", "enc:nope"},
		{"unknown identity", true, "enc:09999999999", "enc:s3cret"},
		{"inactive identity", false, "enc:01012345678", "enc:s3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, st := newGateWithIdentity(t, tt.active)
			_, err := authenticate(t, g, st, tt.id, tt.pw)
			if !errors.Is(err, authdomain.ErrInvalidCredential) {
				t.Errorf("err = %v, want ErrInvalidCredential", err)
			}
			if errors.Is(err, authdomain.ErrMalformedCredential) {
				t.Error("wrong password must not be reported as malformed")
			}
		})
	}
}

func TestGate_Authenticate_MalformedCredential(t *testing.T) {
	g, st := newGateWithIdentity(t, true)
	for _, pair := range [][2]string{
		{"garbage", "enc:s3cret"},
		{"enc:01012345678", "garbage"},
		{"enc:", "enc:s3cret"},
		{"enc:01012345678", "enc:"},
	} {
		_, err := authenticate(t, g, st, pair[0], pair[1])
		if !errors.Is(err, authdomain.ErrMalformedCredential) {
			t.Errorf("Authenticate(%q, %q) err = %v, want ErrMalformedCredential", pair[0], pair[1], err)
		}
	}
}

func TestGate_DecryptFailureIsServerError(t *testing.T) {
	g, _ := newGateWithIdentity(t, true)
	_, err := g.DecryptPassword("fail")
	if !errors.Is(err, errKeyService) {
		t.Fatalf("err = %v, want wrapped key service error", err)
	}
	if authdomain.CodeFor(err) != authdomain.CodeServerError {
		t.Errorf("CodeFor = %v, want server error", authdomain.CodeFor(err))
	}
}

func TestGate_Authenticate_LookupFailure(t *testing.T) {
	g, st := newGateWithIdentity(t, true)
	st.Fail("identities.get", errors.New("db down"))
	_, err := authenticate(t, g, st, "enc:01012345678", "enc:s3cret")
	if authdomain.CodeFor(err) != authdomain.CodeServerError {
		t.Errorf("err = %v, want server error", err)
	}
}

func TestGate_HashPassword(t *testing.T) {
	g, _ := newGateWithIdentity(t, true)
	h, err := g.HashPassword("new-password")
	if err != nil || h == "" {
		t.Fatalf("HashPassword = %q, %v", h, err)
	}
	_, err = g.HashPassword(strings.Repeat("x", 100))
	if !errors.Is(err, authdomain.ErrMalformedInput) {
		t.Errorf("long password err = %v, want ErrMalformedInput", err)
	}
}
