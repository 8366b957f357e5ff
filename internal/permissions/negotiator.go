// Package permissions negotiates read and write consent with the native health store.
package permissions

import (
	"context"

	"example.com/healthsync/internal/domain"
	"example.com/healthsync/internal/native"
)

// Mode selects which access level to request.
type Mode int

const (
	ModeRead Mode = iota
	ModeReadWrite
)

func (m Mode) String() string {
	if m == ModeReadWrite {
		return "readWrite"
	}
	return "read"
}

// Build derives the native permission lists from a grant set. Categories whose
// grant is false are never requested.
func Build(grants domain.Grants, mode Mode) native.Permissions {
	perms := native.Permissions{Read: []native.Category{}, Write: []native.Category{}}
	if grants.Workouts {
		perms.Read = append(perms.Read, native.CategoryWorkout)
	}
	if grants.ActiveEnergy {
		perms.Read = append(perms.Read, native.CategoryActiveEnergy)
	}
	if grants.HeartRate {
		perms.Read = append(perms.Read, native.CategoryHeartRate)
	}
	if mode == ModeReadWrite {
		perms.Write = append(perms.Write, native.CategoryWorkout)
	}
	return perms
}

// Negotiator requests permissions once per call; callers decide about retries.
type Negotiator struct{}

// Request asks the native store for the permissions implied by grants and mode.
// Any native failure, including a panic inside the module, is reported as false.
func (Negotiator) Request(ctx context.Context, module native.PermissionInitializer, grants domain.Grants, mode Mode) (granted bool) {
	if module == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			granted = false
		}
	}()
	return module.InitHealthKit(ctx, Build(grants, mode)) == nil
}
