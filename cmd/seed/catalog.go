package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	registrydomain "transapp-auth/internal/registry/domain"
	roledomain "transapp-auth/internal/role/domain"
	"transapp-auth/internal/store"
)

//go:embed roles.yaml
var defaultCatalog []byte

type catalogFile struct {
	Roles []struct {
		ID          int      `yaml:"id"`
		Name        string   `yaml:"name"`
		Permissions []string `yaml:"permissions"`
	} `yaml:"roles"`
}

// parseCatalog decodes a YAML role catalog. Ids must be positive and ids and
// names unique; every joinable role and default join role must be present.
func parseCatalog(data []byte) ([]roledomain.Role, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse role catalog: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, errors.New("role catalog is empty")
	}
	ids := make(map[int]bool)
	names := make(map[string]bool)
	roles := make([]roledomain.Role, 0, len(f.Roles))
	for _, r := range f.Roles {
		if r.ID <= 0 || r.Name == "" {
			return nil, fmt.Errorf("role %q: id must be positive and name set", r.Name)
		}
		if ids[r.ID] || names[r.Name] {
			return nil, fmt.Errorf("role %q (%d) is defined twice", r.Name, r.ID)
		}
		ids[r.ID], names[r.Name] = true, true
		roles = append(roles, roledomain.Role{ID: r.ID, Name: r.Name, Permissions: r.Permissions})
	}
	required := append([]string{}, roledomain.DefaultJoinRoles...)
	for name := range roledomain.JoinableRoles {
		required = append(required, name)
	}
	for _, name := range required {
		if !names[name] {
			return nil, fmt.Errorf("role catalog is missing %q", name)
		}
	}
	return roles, nil
}

// seed upserts the roles and writes the device limit when the registry has none.
// It is safe to run repeatedly.
func seed(ctx context.Context, st store.Store, roles []roledomain.Role, deviceLimit int) error {
	return st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for i := range roles {
			if err := tx.Roles().UpsertRole(ctx, &roles[i]); err != nil {
				return fmt.Errorf("upsert role %s: %w", roles[i].Name, err)
			}
		}
		_, ok, err := tx.Registry().Get(ctx, registrydomain.SectionUser, registrydomain.KeyDeviceLimit)
		if err != nil {
			return fmt.Errorf("read device limit: %w", err)
		}
		if ok {
			return nil
		}
		if err := tx.Registry().Set(ctx, registrydomain.SectionUser, registrydomain.KeyDeviceLimit, strconv.Itoa(deviceLimit)); err != nil {
			return fmt.Errorf("write device limit: %w", err)
		}
		return nil
	})
}
