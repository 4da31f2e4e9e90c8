package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"caretaker/api/internal/authpw"
	"caretaker/api/internal/config"
	"caretaker/api/internal/priority"
	"caretaker/api/internal/rbac"
	"caretaker/api/internal/refcache"
	"caretaker/api/internal/search"
	"caretaker/api/internal/store"
)

type dataStore interface {
	Ping(context.Context) error
	ResolveBuilding(context.Context, string) (int64, bool, error)
	ResolveContractor(context.Context, string) (int64, bool, error)
	ResolveStatus(context.Context, string) (int64, bool, error)
	ResolveRole(context.Context, string) (int64, bool, error)
	ListJobs(context.Context, store.JobFilter) ([]store.JobRow, error)
	InsertJob(context.Context, store.Job) (int64, error)
	UpdateJob(context.Context, store.Job) (int64, error)
	DeleteJob(context.Context, int64) (int64, error)
	ListBuildingNames(context.Context) ([]string, error)
	ListContractorNames(context.Context) ([]string, error)
	ListDepartments(context.Context) ([]store.Department, error)
	ListUsers(context.Context) ([]store.User, error)
	GetUserByID(context.Context, int64) (store.User, error)
	GetActiveUserByUsername(context.Context, string) (store.User, error)
	UsernameTaken(context.Context, string, int64) (bool, error)
	InsertUser(context.Context, store.User) (int64, error)
	UpdateUser(context.Context, int64, store.UserUpdate) (int64, error)
	DeleteUser(context.Context, int64) (int64, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	auth     *authpw.Service
	refcache *refcache.Cache // nil disables the resolver cache
	search   *search.Service // nil disables the search endpoint's index
}

func New(cfg config.Config, dataStore dataStore, searchService *search.Service) *Service {
	return &Service{
		cfg:    cfg,
		store:  dataStore,
		auth:   authpw.NewService(dataStore),
		search: searchService,
	}
}

// NewWithRefCache wires in the Redis-backed reference resolution cache.
func NewWithRefCache(cfg config.Config, dataStore dataStore, cache *refcache.Cache, searchService *search.Service) *Service {
	s := New(cfg, dataStore, searchService)
	s.refcache = cache
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap pushes the current job table into the search index so a
// fresh Meilisearch instance starts answering immediately.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

// JobView is a listed job with joined reference labels. Department
// fields are explicit nulls when the job has no department.
type JobView struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	DueDay          int     `json:"dueDay"`
	DueMonth        int     `json:"dueMonth"`
	DueYear         int     `json:"dueYear"`
	Priority        string  `json:"priority"`
	Building        string  `json:"building"`
	DepartmentID    *int64  `json:"departmentId"`
	DepartmentUnit  *string `json:"departmentUnit"`
	DepartmentOrder *int64  `json:"departmentOrder"`
	Contractor      string  `json:"contractor"`
	Status          string  `json:"status"`
}

// JobInput is the write payload for creating or replacing a job.
// Building, contractor, and status travel as human-readable names and
// are resolved to foreign keys before the statement runs.
type JobInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	DueDate      string `json:"dueDate"`
	Priority     string `json:"priority"`
	Building     string `json:"building"`
	DepartmentID *int64 `json:"departmentId"`
	Contractor   string `json:"contractor"`
	Status       string `json:"status"`
}

// ListJobs applies the role's row filter and returns jobs in fixed
// order: most recent due date first. Administration sees its building's
// jobs, Contractors their own, everyone else everything.
func (s *Service) ListJobs(ctx context.Context, role string, scopeID int64) ([]JobView, error) {
	var filter store.JobFilter
	switch rbac.Normalize(role) {
	case rbac.RoleAdministration:
		if scopeID > 0 {
			filter.BuildingID = &scopeID
		}
	case rbac.RoleContractors:
		if scopeID > 0 {
			filter.ContractorID = &scopeID
		}
	}

	rows, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	views := make([]JobView, 0, len(rows))
	for _, row := range rows {
		views = append(views, JobView{
			ID:              row.ID,
			Title:           row.Title,
			Description:     row.Description,
			DueDay:          row.DueDay,
			DueMonth:        row.DueMonth,
			DueYear:         row.DueYear,
			Priority:        priority.Normalize(row.Priority),
			Building:        row.Building,
			DepartmentID:    row.DepartmentID,
			DepartmentUnit:  row.DepartmentUnit,
			DepartmentOrder: row.DepartmentOrder,
			Contractor:      row.Contractor,
			Status:          row.Status,
		})
	}
	return views, nil
}

func (s *Service) CreateJob(ctx context.Context, in JobInput) (int64, error) {
	job, err := s.jobFromInput(ctx, in)
	if err != nil {
		return 0, err
	}

	id, err := s.store.InsertJob(ctx, job)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}

	s.indexJob(id, in)
	return id, nil
}

func (s *Service) UpdateJob(ctx context.Context, jobID int64, in JobInput) error {
	job, err := s.jobFromInput(ctx, in)
	if err != nil {
		return err
	}
	job.ID = jobID

	affected, err := s.store.UpdateJob(ctx, job)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return domainError(http.StatusNotFound, "Job not found")
	}

	s.indexJob(jobID, in)
	return nil
}

func (s *Service) DeleteJob(ctx context.Context, jobID int64) error {
	affected, err := s.store.DeleteJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if affected == 0 {
		return domainError(http.StatusNotFound, "Job not found")
	}
	if s.search != nil {
		s.search.DeleteJob(jobID)
	}
	return nil
}

// jobFromInput validates the payload, parses the due date, and resolves
// every reference name. All resolutions run before the request is
// judged, so one response covers every unknown name.
func (s *Service) jobFromInput(ctx context.Context, in JobInput) (store.Job, error) {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Description) == "" ||
		strings.TrimSpace(in.DueDate) == "" ||
		strings.TrimSpace(in.Building) == "" ||
		strings.TrimSpace(in.Contractor) == "" ||
		strings.TrimSpace(in.Status) == "" ||
		strings.TrimSpace(in.Priority) == "" {
		return store.Job{}, domainError(http.StatusBadRequest, "Missing required job fields")
	}

	day, month, year, err := parseDueDate(in.DueDate)
	if err != nil {
		return store.Job{}, domainError(http.StatusBadRequest, "Invalid due date format")
	}

	buildingID, buildingOK, err := s.resolveRef(ctx, refcache.KindBuilding, in.Building, s.store.ResolveBuilding)
	if err != nil {
		return store.Job{}, err
	}
	contractorID, contractorOK, err := s.resolveRef(ctx, refcache.KindContractor, in.Contractor, s.store.ResolveContractor)
	if err != nil {
		return store.Job{}, err
	}
	statusID, statusOK, err := s.resolveRef(ctx, refcache.KindStatus, in.Status, s.store.ResolveStatus)
	if err != nil {
		return store.Job{}, err
	}
	if !buildingOK || !contractorOK || !statusOK {
		return store.Job{}, domainError(http.StatusBadRequest,
			"Building, contractor, or status not found. Check the names.")
	}

	return store.Job{
		Title:        in.Title,
		Description:  in.Description,
		DueDay:       day,
		DueMonth:     month,
		DueYear:      year,
		Priority:     in.Priority,
		BuildingID:   buildingID,
		DepartmentID: in.DepartmentID,
		ContractorID: contractorID,
		StatusID:     statusID,
	}, nil
}

// resolveRef consults the Redis cache when configured, falling back to
// the store. Misses are cached on the way out; not-found is never cached.
func (s *Service) resolveRef(ctx context.Context, kind refcache.Kind, name string,
	lookup func(context.Context, string) (int64, bool, error)) (int64, bool, error) {
	if s.refcache != nil {
		if id, ok := s.refcache.Get(ctx, kind, name); ok {
			return id, true, nil
		}
	}
	id, ok, err := lookup(ctx, name)
	if err != nil {
		return 0, false, fmt.Errorf("resolve %s: %w", kind, err)
	}
	if ok && s.refcache != nil {
		s.refcache.Put(ctx, kind, name, id)
	}
	return id, ok, nil
}

func (s *Service) indexJob(id int64, in JobInput) {
	if s.search == nil {
		return
	}
	s.search.IndexJob(search.JobRecord{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Building:    in.Building,
		Status:      in.Status,
	})
}

// SearchJobs runs the full-text search over job titles and descriptions.
func (s *Service) SearchJobs(q string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(search.Query{Text: q, Limit: limit, Offset: offset})
}

// ListBuildingNames returns every building name, ordered.
func (s *Service) ListBuildingNames(ctx context.Context) ([]string, error) {
	names, err := s.store.ListBuildingNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return names, nil
}

// ListContractorNames returns every contractor name, ordered.
func (s *Service) ListContractorNames(ctx context.Context) ([]string, error) {
	names, err := s.store.ListContractorNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	return names, nil
}

// DepartmentView is a department joined with its building name.
type DepartmentView struct {
	ID           int64  `json:"id"`
	BuildingID   int64  `json:"buildingId"`
	BuildingName string `json:"buildingName"`
	Code         int    `json:"code"`
	Unit         string `json:"unit"`
	Sort         int    `json:"sort"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Whatsapp     string `json:"whatsapp"`
}

func (s *Service) ListDepartments(ctx context.Context) ([]DepartmentView, error) {
	items, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	views := make([]DepartmentView, 0, len(items))
	for _, item := range items {
		views = append(views, DepartmentView{
			ID:           item.ID,
			BuildingID:   item.BuildingID,
			BuildingName: item.BuildingName,
			Code:         item.Code,
			Unit:         item.Unit,
			Sort:         item.Sort,
			Name:         item.Name,
			Email:        item.Email,
			Phone:        item.Phone,
			Whatsapp:     item.Whatsapp,
		})
	}
	return views, nil
}

// parseDueDate accepts a plain date or an RFC3339 timestamp and splits
// it into day, month, year. No timezone conversion is applied.
func parseDueDate(raw string) (day, month, year int, err error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		return 0, 0, 0, err
	}
	return t.Day(), int(t.Month()), t.Year(), nil
}
