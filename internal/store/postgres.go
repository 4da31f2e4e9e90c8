package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- reference resolution ----
//
// Exact, case-sensitive name match. A missing name reports ok=false
// rather than an error so callers can batch-validate several resolutions
// before deciding the request's fate.

func (s *PostgresStore) ResolveBuilding(ctx context.Context, name string) (int64, bool, error) {
	return s.resolve(ctx, `SELECT id FROM buildings WHERE name=$1`, name)
}

func (s *PostgresStore) ResolveContractor(ctx context.Context, name string) (int64, bool, error) {
	return s.resolve(ctx, `SELECT id FROM contractors WHERE name=$1`, name)
}

func (s *PostgresStore) ResolveStatus(ctx context.Context, label string) (int64, bool, error) {
	return s.resolve(ctx, `SELECT id FROM statuses WHERE label=$1`, label)
}

func (s *PostgresStore) ResolveRole(ctx context.Context, name string) (int64, bool, error) {
	return s.resolve(ctx, `SELECT id FROM roles WHERE name=$1`, name)
}

func (s *PostgresStore) resolve(ctx context.Context, query, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve name: %w", err)
	}
	return id, true, nil
}

// ---- jobs ----

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]JobRow, error) {
	query := `
		SELECT j.id, j.title, j.description, j.due_day, j.due_month, j.due_year,
			j.priority, b.name, d.id, d.unit, d.sort, c.name, st.label
		FROM jobs j
		JOIN buildings b ON b.id = j.building_id
		LEFT JOIN departments d ON d.id = j.department_id
		JOIN contractors c ON c.id = j.contractor_id
		JOIN statuses st ON st.id = j.status_id
	`
	args := []any{}
	switch {
	case filter.BuildingID != nil:
		query += ` WHERE j.building_id = $1`
		args = append(args, *filter.BuildingID)
	case filter.ContractorID != nil:
		query += ` WHERE j.contractor_id = $1`
		args = append(args, *filter.ContractorID)
	}
	query += ` ORDER BY j.due_year DESC, j.due_month DESC, j.due_day DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]JobRow, 0)
	for rows.Next() {
		var item JobRow
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Description,
			&item.DueDay, &item.DueMonth, &item.DueYear,
			&item.Priority, &item.Building,
			&item.DepartmentID, &item.DepartmentUnit, &item.DepartmentOrder,
			&item.Contractor, &item.Status,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertJob(ctx context.Context, job Job) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (title, description, due_day, due_month, due_year, priority,
			building_id, department_id, contractor_id, status_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, job.Title, job.Description, job.DueDay, job.DueMonth, job.DueYear, job.Priority,
		job.BuildingID, job.DepartmentID, job.ContractorID, job.StatusID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

// UpdateJob rewrites every field of the row and reports how many rows
// matched. Zero means the row does not exist: Postgres counts matched
// rows, so an update identical to the current values still reports one.
func (s *PostgresStore) UpdateJob(ctx context.Context, job Job) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET title=$1, description=$2, due_day=$3, due_month=$4, due_year=$5,
			priority=$6, building_id=$7, department_id=$8, contractor_id=$9, status_id=$10
		WHERE id=$11
	`, job.Title, job.Description, job.DueDay, job.DueMonth, job.DueYear, job.Priority,
		job.BuildingID, job.DepartmentID, job.ContractorID, job.StatusID, job.ID)
	if err != nil {
		return 0, fmt.Errorf("update job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update job rows: %w", err)
	}
	return affected, nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id=$1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete job rows: %w", err)
	}
	return affected, nil
}

// ---- reference listings ----

func (s *PostgresStore) ListBuildingNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM buildings ORDER BY name`)
}

func (s *PostgresStore) ListContractorNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM contractors ORDER BY name`)
}

func (s *PostgresStore) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

func (s *PostgresStore) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.building_id, b.name, d.code, d.unit, d.sort,
			d.name, d.email, d.phone, d.whatsapp
		FROM departments d
		JOIN buildings b ON b.id = d.building_id
		ORDER BY b.name, d.code
	`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	items := make([]Department, 0)
	for rows.Next() {
		var item Department
		if err := rows.Scan(
			&item.ID, &item.BuildingID, &item.BuildingName, &item.Code,
			&item.Unit, &item.Sort, &item.Name, &item.Email, &item.Phone, &item.Whatsapp,
		); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return items, nil
}

// ---- users ----

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.role_id, r.name, u.building_id, u.contractor_id, u.active
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.username
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var item User
		if err := rows.Scan(
			&item.ID, &item.Username, &item.RoleID, &item.Role,
			&item.BuildingID, &item.ContractorID, &item.Active,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

// GetUserByID loads a user with its role name joined in. The role is read
// fresh on every call so a role change is visible to the next
// authorization decision.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.role_id, r.name,
			u.building_id, u.contractor_id, u.active
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id=$1
	`, userID).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.RoleID, &user.Role,
		&user.BuildingID, &user.ContractorID, &user.Active,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetActiveUserByUsername is the credential-check lookup: only active
// accounts can sign in.
func (s *PostgresStore) GetActiveUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.role_id, r.name,
			u.building_id, u.contractor_id, u.active
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.username=$1 AND u.active
	`, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.RoleID, &user.Role,
		&user.BuildingID, &user.ContractorID, &user.Active,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UsernameTaken reports whether any user other than excludeID already
// holds the username. Pass 0 to check against every row.
func (s *PostgresStore) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 AND id<>$2)`,
		username, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return taken, nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, user User) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role_id, building_id, contractor_id, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, user.Username, user.PasswordHash, user.RoleID,
		user.BuildingID, user.ContractorID, user.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// UpdateUser issues the one fixed-shape user update statement. The patch
// builder has already resolved every column to its final value, so the
// statement text never varies; a nil PasswordHash keeps the stored hash.
func (s *PostgresStore) UpdateUser(ctx context.Context, userID int64, upd UserUpdate) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username=$1,
			password_hash=COALESCE($2, password_hash),
			role_id=$3,
			building_id=$4,
			contractor_id=$5,
			active=$6
		WHERE id=$7
	`, upd.Username, upd.PasswordHash, upd.RoleID, upd.BuildingID, upd.ContractorID, upd.Active, userID)
	if err != nil {
		return 0, fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update user rows: %w", err)
	}
	return affected, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete user rows: %w", err)
	}
	return affected, nil
}
