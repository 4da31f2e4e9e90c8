package app

import (
	"bytes"
	"encoding/json"

	"caretaker/api/internal/store"
)

// OptionalInt64 distinguishes a field absent from the request body from
// an explicit null. Absent keeps the stored value; null clears it.
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// fieldAction is the per-field outcome of the update policy: keep the
// stored value, apply the caller's value, or reject the caller's value.
type fieldAction int

const (
	keepCurrent fieldAction = iota
	applyRequested
	rejectRequested
)

// decideField gates a privileged-only field. A non-privileged caller's
// requested value is rejected, never applied; an omitted field always
// keeps the stored value.
func decideField(privileged, requested bool) fieldAction {
	switch {
	case !privileged && requested:
		return rejectRequested
	case requested:
		return applyRequested
	default:
		return keepCurrent
	}
}

// userChangeSet is the requested change set after decoding and, for the
// role, after name resolution. Nil pointers mean the field was omitted.
type userChangeSet struct {
	Username     string
	PasswordHash *string
	RoleID       *int64
	BuildingID   OptionalInt64
	ContractorID OptionalInt64
	Active       *bool
}

// buildUserUpdate resolves every column to its final value so the store
// can issue one fixed-shape statement. Username and password are open to
// any permitted caller; role, scope references, and the active flag are
// gated on privilege.
func buildUserUpdate(current store.User, set userChangeSet, privileged bool) store.UserUpdate {
	upd := store.UserUpdate{
		Username:     set.Username,
		PasswordHash: set.PasswordHash,
		RoleID:       current.RoleID,
		BuildingID:   current.BuildingID,
		ContractorID: current.ContractorID,
		Active:       current.Active,
	}

	if decideField(privileged, set.RoleID != nil) == applyRequested {
		upd.RoleID = *set.RoleID
	}
	if decideField(privileged, set.BuildingID.Set) == applyRequested {
		upd.BuildingID = set.BuildingID.Value
	}
	if decideField(privileged, set.ContractorID.Set) == applyRequested {
		upd.ContractorID = set.ContractorID.Value
	}
	if decideField(privileged, set.Active != nil) == applyRequested {
		upd.Active = *set.Active
	}

	return upd
}
