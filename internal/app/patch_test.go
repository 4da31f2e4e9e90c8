package app

import (
	"encoding/json"
	"testing"

	"caretaker/api/internal/store"
)

func TestOptionalInt64DistinguishesAbsentFromNull(t *testing.T) {
	type payload struct {
		BuildingID OptionalInt64 `json:"buildingId"`
	}

	var absent payload
	if err := json.Unmarshal([]byte(`{}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if absent.BuildingID.Set {
		t.Fatalf("expected omitted field to stay unset")
	}

	var null payload
	if err := json.Unmarshal([]byte(`{"buildingId":null}`), &null); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !null.BuildingID.Set || null.BuildingID.Value != nil {
		t.Fatalf("expected explicit null to be set with nil value, got %+v", null.BuildingID)
	}

	var value payload
	if err := json.Unmarshal([]byte(`{"buildingId":7}`), &value); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !value.BuildingID.Set || value.BuildingID.Value == nil || *value.BuildingID.Value != 7 {
		t.Fatalf("expected value 7, got %+v", value.BuildingID)
	}
}

func TestBuildUserUpdateGatesPrivilegedFields(t *testing.T) {
	current := store.User{
		ID:           5,
		Username:     "bob",
		RoleID:       3,
		BuildingID:   ptrInt64(2),
		ContractorID: nil,
		Active:       true,
	}

	t.Run("unprivileged caller keeps gated fields", func(t *testing.T) {
		inactive := false
		set := userChangeSet{
			Username:     "bobby",
			RoleID:       ptrInt64(1),
			BuildingID:   OptionalInt64{Set: true, Value: ptrInt64(9)},
			ContractorID: OptionalInt64{Set: true, Value: ptrInt64(4)},
			Active:       &inactive,
		}
		upd := buildUserUpdate(current, set, false)

		if upd.Username != "bobby" {
			t.Fatalf("expected username applied, got %q", upd.Username)
		}
		if upd.RoleID != 3 {
			t.Fatalf("expected stored role kept, got %d", upd.RoleID)
		}
		assertInt64Ptr(t, "BuildingID", upd.BuildingID, ptrInt64(2))
		assertInt64Ptr(t, "ContractorID", upd.ContractorID, nil)
		if !upd.Active {
			t.Fatalf("expected active flag kept")
		}
	})

	t.Run("privileged caller applies requested values", func(t *testing.T) {
		inactive := false
		set := userChangeSet{
			Username:     "bob",
			RoleID:       ptrInt64(1),
			BuildingID:   OptionalInt64{Set: true, Value: nil},
			ContractorID: OptionalInt64{Set: true, Value: ptrInt64(4)},
			Active:       &inactive,
		}
		upd := buildUserUpdate(current, set, true)

		if upd.RoleID != 1 {
			t.Fatalf("expected role applied, got %d", upd.RoleID)
		}
		assertInt64Ptr(t, "BuildingID", upd.BuildingID, nil)
		assertInt64Ptr(t, "ContractorID", upd.ContractorID, ptrInt64(4))
		if upd.Active {
			t.Fatalf("expected active flag cleared")
		}
	})

	t.Run("privileged caller omitting fields keeps stored values", func(t *testing.T) {
		set := userChangeSet{Username: "bob"}
		upd := buildUserUpdate(current, set, true)

		if upd.RoleID != 3 {
			t.Fatalf("expected stored role kept, got %d", upd.RoleID)
		}
		assertInt64Ptr(t, "BuildingID", upd.BuildingID, ptrInt64(2))
		if !upd.Active {
			t.Fatalf("expected active flag kept")
		}
		if upd.PasswordHash != nil {
			t.Fatalf("expected stored hash untouched")
		}
	})
}
