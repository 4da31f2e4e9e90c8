package store

// Job is the jobs table row. Priority holds whatever the row stores:
// a legacy numeric code ("0"/"1"/"2") or an already-canonical label.
type Job struct {
	ID           int64
	Title        string
	Description  string
	DueDay       int
	DueMonth     int
	DueYear      int
	Priority     string
	BuildingID   int64
	DepartmentID *int64
	ContractorID int64
	StatusID     int64
}

// JobRow is a job denormalized with its joined reference labels, as
// returned by listings.
type JobRow struct {
	ID              int64
	Title           string
	Description     string
	DueDay          int
	DueMonth        int
	DueYear         int
	Priority        string
	Building        string
	DepartmentID    *int64
	DepartmentUnit  *string
	DepartmentOrder *int64
	Contractor      string
	Status          string
}

type Department struct {
	ID           int64
	BuildingID   int64
	BuildingName string
	Code         int
	Unit         string
	Sort         int
	Name         string
	Email        string
	Phone        string
	Whatsapp     string
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	RoleID       int64
	Role         string
	BuildingID   *int64
	ContractorID *int64
	Active       bool
}

// JobFilter restricts a job listing to one building or one contractor.
// Both nil means no restriction.
type JobFilter struct {
	BuildingID   *int64
	ContractorID *int64
}

// UserUpdate is the fixed-shape field set written by a user update. Every
// field is already resolved to its final value by the patch builder;
// PasswordHash nil means the stored hash is left untouched.
type UserUpdate struct {
	Username     string
	PasswordHash *string
	RoleID       int64
	BuildingID   *int64
	ContractorID *int64
	Active       bool
}
