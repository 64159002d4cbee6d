package registry

import (
	"context"
	"errors"
	"testing"

	authdomain "transapp-auth/internal/auth/domain"
	"transapp-auth/internal/registry/domain"
	"transapp-auth/internal/store"
	"transapp-auth/internal/store/memory"
)

func readLimit(t *testing.T, st *memory.Store, l *DeviceLimits) (int, error) {
	t.Helper()
	var n int
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		n, err = l.DeviceLimit(ctx, tx)
		return err
	})
	return n, err
}

func TestDeviceLimits_DefaultWhenUnset(t *testing.T) {
	n, err := readLimit(t, memory.New(), NewDeviceLimits(3))
	if err != nil || n != 3 {
		t.Errorf("DeviceLimit = %d, %v; want 3", n, err)
	}
}

func TestDeviceLimits_ReadsFreshEachCall(t *testing.T) {
	st := memory.New()
	l := NewDeviceLimits(3)
	st.SetSetting(domain.SectionUser, domain.KeyDeviceLimit, "5")
	if n, _ := readLimit(t, st, l); n != 5 {
		t.Errorf("DeviceLimit = %d, want 5", n)
	}
	st.SetSetting(domain.SectionUser, domain.KeyDeviceLimit, "1")
	if n, _ := readLimit(t, st, l); n != 1 {
		t.Errorf("DeviceLimit after change = %d, want 1", n)
	}
}

func TestDeviceLimits_InvalidValueFallsBack(t *testing.T) {
	st := memory.New()
	st.SetSetting(domain.SectionUser, domain.KeyDeviceLimit, "many")
	if n, err := readLimit(t, st, NewDeviceLimits(2)); err != nil || n != 2 {
		t.Errorf("DeviceLimit = %d, %v; want 2", n, err)
	}
}

func TestDeviceLimits_ReadFailure(t *testing.T) {
	st := memory.New()
	boom := errors.New("db down")
	st.Fail("registry.get", boom)
	if _, err := readLimit(t, st, NewDeviceLimits(3)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped db error", err)
	}
}

func TestDeviceLimits_SetDeviceLimit(t *testing.T) {
	st := memory.New()
	l := NewDeviceLimits(3)
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return l.SetDeviceLimit(ctx, tx, 7)
	})
	if err != nil {
		t.Fatalf("SetDeviceLimit: %v", err)
	}
	if n, _ := readLimit(t, st, l); n != 7 {
		t.Errorf("DeviceLimit = %d, want 7", n)
	}
	err = st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return l.SetDeviceLimit(ctx, tx, -1)
	})
	if !errors.Is(err, authdomain.ErrMalformedInput) {
		t.Errorf("negative limit err = %v, want ErrMalformedInput", err)
	}
}
