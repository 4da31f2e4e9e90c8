package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

// handle dispatches on (method, endpoint). Endpoint selection rides in
// the "endpoint" query parameter for GET/DELETE and in an "endpoint"
// body field for POST/PUT; the mutation target id is always the "id"
// query parameter.
func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodPut:
		s.handlePut(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("endpoint") {
	case "jobs":
		role := r.URL.Query().Get("role")
		scopeID, _ := strconv.ParseInt(r.URL.Query().Get("scope_id"), 10, 64)
		jobs, err := s.service.ListJobs(r.Context(), role, scopeID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)

	case "buildings":
		names, err := s.service.ListBuildingNames(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, names)

	case "contractors":
		names, err := s.service.ListContractorNames(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, names)

	case "departments":
		items, err := s.service.ListDepartments(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	case "users":
		users, err := s.service.ListUsers(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)

	case "search":
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)
		writeJSON(w, http.StatusOK, s.service.SearchJobs(q, limit, offset))

	default:
		writeError(w, http.StatusNotFound, "GET endpoint not found")
	}
}

func (s *HTTPServer) handlePost(w http.ResponseWriter, r *http.Request) {
	body, endpoint, ok := s.readEnvelope(w, r)
	if !ok {
		return
	}

	switch endpoint {
	case "login":
		var in struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !s.decode(w, body, &in) {
			return
		}
		user, err := s.service.Login(r.Context(), in.Username, in.Password)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Login successful",
			"userData": user,
		})

	case "jobs":
		var in JobInput
		if !s.decode(w, body, &in) {
			return
		}
		id, err := s.service.CreateJob(r.Context(), in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Job created",
			"id":      id,
		})

	case "users":
		var in CreateUserInput
		if !s.decode(w, body, &in) {
			return
		}
		id, err := s.service.CreateUser(r.Context(), in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "User created",
			"id":      id,
		})

	default:
		writeError(w, http.StatusNotFound, "POST endpoint not found")
	}
}

func (s *HTTPServer) handlePut(w http.ResponseWriter, r *http.Request) {
	body, endpoint, ok := s.readEnvelope(w, r)
	if !ok {
		return
	}
	id, ok := targetID(r)

	switch {
	case endpoint == "jobs" && ok:
		var in JobInput
		if !s.decode(w, body, &in) {
			return
		}
		if err := s.service.UpdateJob(r.Context(), id, in); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Job updated"})

	case endpoint == "users" && ok:
		var in UpdateUserInput
		if !s.decode(w, body, &in) {
			return
		}
		if err := s.service.UpdateUser(r.Context(), id, in); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "User updated"})

	default:
		writeError(w, http.StatusNotFound, "PUT endpoint not found or id missing")
	}
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	id, ok := targetID(r)

	switch {
	case endpoint == "jobs" && ok:
		if err := s.service.DeleteJob(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Job deleted"})

	case endpoint == "users" && ok:
		currentUserID, _ := strconv.ParseInt(r.URL.Query().Get("current_user_id"), 10, 64)
		if err := s.service.DeleteUser(r.Context(), currentUserID, id); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted"})

	default:
		writeError(w, http.StatusNotFound, "DELETE endpoint not found or id missing")
	}
}

// readEnvelope reads the request body once and pulls out the endpoint
// selector; the raw bytes are returned for a second, typed decode.
func (s *HTTPServer) readEnvelope(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return nil, "", false
	}

	var envelope struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, "", false
	}
	return body, envelope.Endpoint, true
}

func (s *HTTPServer) decode(w http.ResponseWriter, body []byte, target any) bool {
	if err := json.Unmarshal(body, target); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// fail maps a service error onto the response envelope. Storage errors
// are logged with their detail but reported generically.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		writeError(w, domainErr.Status, domainErr.Message)
		return
	}
	log.Printf(`{"request_id":"%s","error":%q}`, requestIDFrom(r.Context()), err.Error())
	writeError(w, http.StatusInternalServerError, "Server error")
}

func targetID(r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","endpoint":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Query().Get("endpoint"),
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
