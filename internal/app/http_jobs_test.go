package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caretaker/api/internal/store"
)

func TestListJobsEndpointReturnsRows(t *testing.T) {
	unit := "4B"
	fs := &fakeStore{
		listJobsFn: func(context.Context, store.JobFilter) ([]store.JobRow, error) {
			return []store.JobRow{
				{
					ID: 1, Title: "Fix boiler", Description: "No hot water",
					DueDay: 15, DueMonth: 9, DueYear: 2026,
					Priority: "2", Building: "Torre Norte",
					DepartmentUnit: &unit,
					Contractor:     "Plumbing Co", Status: "Pending",
				},
				{
					ID: 2, Title: "Repaint lobby", Description: "Cracked paint",
					DueDay: 3, DueMonth: 8, DueYear: 2026,
					Priority: "Low", Building: "Torre Sur",
					Contractor: "Paint Co", Status: "Completed",
				},
			}, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	req := httptest.NewRequest(http.MethodGet, "/api?endpoint=jobs", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var jobs []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0]["priority"] != "High" {
		t.Fatalf("expected numeric priority mapped to High, got %v", jobs[0]["priority"])
	}
	if jobs[0]["departmentUnit"] != "4B" {
		t.Fatalf("expected departmentUnit 4B, got %v", jobs[0]["departmentUnit"])
	}
	if v, present := jobs[1]["departmentId"]; !present || v != nil {
		t.Fatalf("expected explicit null departmentId, got %v (present=%v)", v, present)
	}
}

func TestListJobsEndpointPassesRoleScope(t *testing.T) {
	var got store.JobFilter
	fs := &fakeStore{
		listJobsFn: func(_ context.Context, filter store.JobFilter) ([]store.JobRow, error) {
			got = filter
			return nil, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	req := httptest.NewRequest(http.MethodGet, "/api?endpoint=jobs&role=Administration&scope_id=6", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	assertInt64Ptr(t, "BuildingID", got.BuildingID, ptrInt64(6))
	assertInt64Ptr(t, "ContractorID", got.ContractorID, nil)
}

func TestCreateJobEndpointReturnsCreated(t *testing.T) {
	fs := &fakeStore{
		insertJobFn: func(context.Context, store.Job) (int64, error) { return 42, nil },
	}
	server := NewHTTPServer(newTestService(fs), "*")

	body := `{"endpoint":"jobs","title":"Fix boiler","description":"No hot water","dueDate":"2026-09-15","priority":"High","building":"Torre Norte","contractor":"Plumbing Co","status":"Pending"}`
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["id"] != float64(42) {
		t.Fatalf("expected id 42, got %v", payload["id"])
	}
	if payload["message"] != "Job created" {
		t.Fatalf("expected creation message, got %v", payload["message"])
	}
}

func TestCreateJobEndpointRejectsUnknownReferences(t *testing.T) {
	fs := &fakeStore{
		resolveBuildingFn: func(context.Context, string) (int64, bool, error) {
			return 0, false, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	body := `{"endpoint":"jobs","title":"Fix boiler","description":"No hot water","dueDate":"2026-09-15","priority":"High","building":"Nowhere","contractor":"Plumbing Co","status":"Pending"}`
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertErrorEnvelope(t, rr, http.StatusBadRequest, "Building, contractor, or status not found. Check the names.")
}

func TestUpdateJobEndpointMissingRowReturnsNotFound(t *testing.T) {
	fs := &fakeStore{
		updateJobFn: func(context.Context, store.Job) (int64, error) { return 0, nil },
	}
	server := NewHTTPServer(newTestService(fs), "*")

	body := `{"endpoint":"jobs","title":"Fix boiler","description":"No hot water","dueDate":"2026-09-15","priority":"High","building":"Torre Norte","contractor":"Plumbing Co","status":"Pending"}`
	req := httptest.NewRequest(http.MethodPut, "/api?id=77", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertErrorEnvelope(t, rr, http.StatusNotFound, "Job not found")
}

func TestUpdateJobEndpointRequiresID(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	body := `{"endpoint":"jobs","title":"Fix boiler"}`
	req := httptest.NewRequest(http.MethodPut, "/api", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDeleteJobEndpoint(t *testing.T) {
	var deleted int64
	fs := &fakeStore{
		deleteJobFn: func(_ context.Context, id int64) (int64, error) {
			deleted = id
			return 1, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	req := httptest.NewRequest(http.MethodDelete, "/api?endpoint=jobs&id=13", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if deleted != 13 {
		t.Fatalf("expected delete of id 13, got %d", deleted)
	}
}

func TestUnknownEndpointReturnsNotFound(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	req := httptest.NewRequest(http.MethodGet, "/api?endpoint=widgets", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertErrorEnvelope(t, rr, http.StatusNotFound, "GET endpoint not found")
}

func TestUnsupportedMethodReturnsMethodNotAllowed(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	req := httptest.NewRequest(http.MethodPatch, "/api?endpoint=jobs", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertErrorEnvelope(t, rr, http.StatusMethodNotAllowed, "Method not allowed")
}

func TestMalformedBodyReturnsBadRequest(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(`{"endpoint":`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertErrorEnvelope(t, rr, http.StatusBadRequest, "Invalid JSON body")
}

func TestOptionsPreflightShortCircuits(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "https://app.example.com" {
		t.Fatalf("expected configured CORS origin, got %q", origin)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestQueryIntClampsNegativeAndMalformedValues(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"absent uses fallback", "", 20},
		{"valid value passes", "limit=5", 5},
		{"zero passes", "limit=0", 0},
		{"negative uses fallback", "limit=-1", 20},
		{"malformed uses fallback", "limit=lots", 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api?endpoint=search&"+tc.query, nil)
			if got := queryInt(req, "limit", 20); got != tc.want {
				t.Fatalf("queryInt(%q) = %d, want %d", tc.query, got, tc.want)
			}
		})
	}
}

func assertErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["message"] != message {
		t.Fatalf("expected message %q, got %v", message, payload["message"])
	}
}
