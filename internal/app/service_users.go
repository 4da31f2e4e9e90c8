package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"caretaker/api/internal/authpw"
	"caretaker/api/internal/rbac"
	"caretaker/api/internal/refcache"
	"caretaker/api/internal/store"
)

// UserView is an account summary. The password hash never leaves the
// service layer.
type UserView struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	BuildingID   *int64 `json:"buildingId"`
	ContractorID *int64 `json:"contractorId"`
	Active       bool   `json:"active"`
}

func userView(u store.User) UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Role:         u.Role,
		BuildingID:   u.BuildingID,
		ContractorID: u.ContractorID,
		Active:       u.Active,
	}
}

// Login verifies credentials against active accounts and returns the
// user summary the client keeps for later requests.
func (s *Service) Login(ctx context.Context, username, password string) (UserView, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return UserView{}, domainError(http.StatusBadRequest, "Username and password are required")
	}

	user, err := s.auth.SignIn(ctx, username, password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return UserView{}, domainError(http.StatusUnauthorized, "Invalid username or password")
		}
		return UserView{}, fmt.Errorf("login: %w", err)
	}

	return userView(user), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	return views, nil
}

// CreateUserInput is the open-registration payload; any caller may
// create an account with any role.
type CreateUserInput struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	BuildingID   *int64 `json:"buildingId"`
	ContractorID *int64 `json:"contractorId"`
	Active       *bool  `json:"active"`
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (int64, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" || strings.TrimSpace(in.Role) == "" {
		return 0, domainError(http.StatusBadRequest, "Username, password, and role are required")
	}

	roleID, ok, err := s.resolveRef(ctx, refcache.KindRole, in.Role, s.store.ResolveRole)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domainError(http.StatusBadRequest, "Unknown role")
	}

	taken, err := s.store.UsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	if taken {
		return 0, domainError(http.StatusConflict, "Username already exists")
	}

	hash, err := authpw.HashPassword(in.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	id, err := s.store.InsertUser(ctx, store.User{
		Username:     in.Username,
		PasswordHash: hash,
		RoleID:       roleID,
		BuildingID:   in.BuildingID,
		ContractorID: in.ContractorID,
		Active:       active,
	})
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// canMutate decides whether currentUserID may edit targetUserID. The
// caller's role is read fresh on every evaluation; a revoked privilege
// takes effect on the next call. Self-edits are always allowed but
// never privileged.
func (s *Service) canMutate(ctx context.Context, currentUserID, targetUserID int64) (allowed, privileged bool, err error) {
	caller, err := s.store.GetUserByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return currentUserID == targetUserID, false, nil
		}
		return false, false, fmt.Errorf("load caller: %w", err)
	}

	privileged = rbac.Privileged(rbac.Role(caller.Role))
	return privileged || currentUserID == targetUserID, privileged, nil
}

// UpdateUserInput is the partial-update payload. Pointer and Optional
// fields distinguish "omitted" from explicit values; CurrentUserID
// identifies the caller for the policy check.
type UpdateUserInput struct {
	CurrentUserID int64         `json:"current_user_id"`
	Username      string        `json:"username"`
	Password      string        `json:"password"`
	Role          *string       `json:"role"`
	BuildingID    OptionalInt64 `json:"buildingId"`
	ContractorID  OptionalInt64 `json:"contractorId"`
	Active        *bool         `json:"active"`
}

func (s *Service) UpdateUser(ctx context.Context, targetUserID int64, in UpdateUserInput) error {
	if in.CurrentUserID == 0 {
		return domainError(http.StatusForbidden, "Current user id required for validation")
	}

	allowed, privileged, err := s.canMutate(ctx, in.CurrentUserID, targetUserID)
	if err != nil {
		return err
	}
	if !allowed {
		return domainError(http.StatusForbidden, "You cannot modify this user")
	}

	if strings.TrimSpace(in.Username) == "" {
		return domainError(http.StatusBadRequest, "Username cannot be empty")
	}

	current, err := s.store.GetUserByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "User not found")
		}
		return fmt.Errorf("load target user: %w", err)
	}

	taken, err := s.store.UsernameTaken(ctx, in.Username, targetUserID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if taken {
		return domainError(http.StatusConflict, "Username already exists")
	}

	set := userChangeSet{
		Username:     in.Username,
		BuildingID:   in.BuildingID,
		ContractorID: in.ContractorID,
		Active:       in.Active,
	}

	if in.Password != "" {
		hash, err := authpw.HashPassword(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		set.PasswordHash = &hash
	}

	// The role travels as a name; resolve it only when the policy would
	// actually apply it.
	if in.Role != nil && strings.TrimSpace(*in.Role) != "" && privileged {
		roleID, ok, err := s.resolveRef(ctx, refcache.KindRole, *in.Role, s.store.ResolveRole)
		if err != nil {
			return err
		}
		if !ok {
			return domainError(http.StatusBadRequest, "Unknown role")
		}
		set.RoleID = &roleID
	}

	upd := buildUserUpdate(current, set, privileged)

	// The target row was just read, so zero affected rows here means the
	// update matched the stored values, not that the row vanished.
	if _, err := s.store.UpdateUser(ctx, targetUserID, upd); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// DeleteUser removes an account. Only a privileged caller may delete,
// and never their own account.
func (s *Service) DeleteUser(ctx context.Context, currentUserID, targetUserID int64) error {
	if currentUserID == 0 {
		return domainError(http.StatusForbidden, "Only a Super User can delete users")
	}

	caller, err := s.store.GetUserByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusForbidden, "Only a Super User can delete users")
		}
		return fmt.Errorf("load caller: %w", err)
	}
	if !rbac.Privileged(rbac.Role(caller.Role)) {
		return domainError(http.StatusForbidden, "Only a Super User can delete users")
	}
	if currentUserID == targetUserID {
		return domainError(http.StatusBadRequest, "You cannot delete your own account")
	}

	affected, err := s.store.DeleteUser(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return domainError(http.StatusNotFound, "User not found")
	}
	return nil
}
