package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
)

// Profile is a resolved user entry together with where it is stored.
type Profile struct {
	models.User
	Location Location `json:"-"`
}

// Directory maps external identities to user entries kept in a BatchStore.
type Directory struct {
	batches *BatchStore[models.User]
	log     *logger.Logger
	now     func() time.Time

	provisioning singleflight.Group
	// uid -> Location; slots are never moved or reused, so entries never go stale
	locations sync.Map
}

func NewDirectory(batches *BatchStore[models.User], log *logger.Logger) *Directory {
	return &Directory{
		batches: batches,
		log:     log.With("component", "Directory"),
		now:     time.Now,
	}
}

// ResolveByUID returns nil, nil when no entry exists for uid.
func (d *Directory) ResolveByUID(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, nil
	}
	if cached, ok := d.locations.Load(uid); ok {
		loc := cached.(Location)
		user, found, err := d.batches.Get(ctx, loc)
		if err != nil {
			return nil, err
		}
		if found && user.UID == uid {
			return &Profile{User: user, Location: loc}, nil
		}
		d.locations.Delete(uid)
	}

	loc, user, found, err := d.batches.FindBy(ctx, func(u models.User) bool { return u.UID == uid })
	if err != nil || !found {
		return nil, err
	}
	d.locations.Store(uid, loc)
	return &Profile{User: user, Location: loc}, nil
}

// ResolveByEmail matches trimmed, case-insensitive emails. Returns nil, nil when absent.
func (d *Directory) ResolveByEmail(ctx context.Context, email string) (*Profile, error) {
	want := models.NormalizeEmail(email)
	if want == "" {
		return nil, nil
	}
	loc, user, found, err := d.batches.FindBy(ctx, func(u models.User) bool {
		return models.NormalizeEmail(u.Email) == want
	})
	if err != nil || !found {
		return nil, err
	}
	d.locations.Store(user.UID, loc)
	return &Profile{User: user, Location: loc}, nil
}

// Provision returns the entry for identity, creating it with defaultRole on first
// sight. Concurrent calls for the same uid in this process share one allocation;
// callers in other processes can still race, in which case two entries exist and
// lookups return the one in the lowest slot.
func (d *Directory) Provision(ctx context.Context, identity models.Identity, defaultRole models.Role) (*Profile, error) {
	if strings.TrimSpace(identity.UID) == "" {
		return nil, errors.New("provision: identity without uid")
	}
	if !defaultRole.Valid() {
		return nil, fmt.Errorf("provision: %w: %q", models.ErrInvalidRole, defaultRole)
	}

	v, err, _ := d.provisioning.Do(identity.UID, func() (interface{}, error) {
		existing, err := d.ResolveByUID(ctx, identity.UID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return d.syncIdentity(ctx, existing, identity)
		}

		createdAt := d.now().UTC()
		loc, err := d.batches.Allocate(ctx, func(loc Location) models.User {
			return models.User{
				UID:             identity.UID,
				Email:           strings.TrimSpace(identity.Email),
				Role:            defaultRole,
				BatchID:         loc.ShardID,
				CreatedAt:       createdAt,
				AcquiredCourses: []string{},
				Progress:        map[string]models.CourseProgress{},
				Name:            strings.TrimSpace(identity.Name),
			}
		})
		if err != nil {
			return nil, fmt.Errorf("provision %s: %w", identity.UID, err)
		}
		d.locations.Store(identity.UID, loc)
		d.log.Info("provisioned user", "uid", identity.UID, "shard", loc.ShardID, "slot", loc.SlotKey)

		user, _, err := d.batches.Get(ctx, loc)
		if err != nil {
			return nil, err
		}
		return &Profile{User: user, Location: loc}, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*Profile)
	return &p, nil
}

// syncIdentity refreshes the provider-owned fields of an existing entry. Role is left alone.
func (d *Directory) syncIdentity(ctx context.Context, p *Profile, identity models.Identity) (*Profile, error) {
	fields := map[string]any{}
	if email := strings.TrimSpace(identity.Email); email != "" && email != p.Email {
		fields["email"] = email
		p.Email = email
	}
	if name := strings.TrimSpace(identity.Name); name != "" && p.Name == "" {
		fields["nombre"] = name
		p.Name = name
	}
	if len(fields) == 0 {
		return p, nil
	}
	if err := d.batches.Update(ctx, p.Location, fields); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Directory) UpdateRole(ctx context.Context, uid string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidRole, role)
	}
	return d.update(ctx, uid, map[string]any{"role": string(role)})
}

func (d *Directory) UpdateProfileFields(ctx context.Context, uid string, update models.ProfileUpdate) error {
	fields := update.Fields()
	if len(fields) == 0 {
		return nil
	}
	return d.update(ctx, uid, fields)
}

// SetDisabled soft-disables or re-enables an account. Entries are never deleted.
func (d *Directory) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	return d.update(ctx, uid, map[string]any{"desactivado": disabled})
}

// AccountStatus answers the pre-login check for an email.
func (d *Directory) AccountStatus(ctx context.Context, email string) (models.AccountStatus, error) {
	p, err := d.ResolveByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	switch {
	case p == nil:
		return models.AccountUnknown, nil
	case p.Disabled:
		return models.AccountDisabled, nil
	}
	return models.AccountActive, nil
}

// List returns every entry, optionally filtered by role, in shard/slot order.
func (d *Directory) List(ctx context.Context, role models.Role) ([]Profile, error) {
	var out []Profile
	err := d.batches.Scan(ctx, func(loc Location, u models.User) bool {
		if role == "" || u.Role == role {
			out = append(out, Profile{User: u, Location: loc})
		}
		return true
	})
	return out, err
}

func (d *Directory) locate(ctx context.Context, uid string) (*Profile, error) {
	p, err := d.ResolveByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", uid, ErrUserNotFound)
	}
	return p, nil
}

func (d *Directory) update(ctx context.Context, uid string, fields map[string]any) error {
	p, err := d.locate(ctx, uid)
	if err != nil {
		return err
	}
	return d.batches.Update(ctx, p.Location, fields)
}
