package app

import "fmt"

// DomainError carries the HTTP status a handled failure maps to. The
// response envelope is always {"message": ...}.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func domainError(status int, message string) *DomainError {
	return &DomainError{Status: status, Message: message}
}
