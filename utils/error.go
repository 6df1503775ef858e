package utils

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrorRecordNotFound     = errors.New("record not found")
	ErrorBankIdRequired     = errors.New("bank id is required")
	ErrorConflict           = errors.New("record was changed by another request")
	ErrorInvalidTransition  = errors.New("status transition is not allowed")
	ErrorCommentRequired    = errors.New("comment is required")
	ErrorInsufficientPoints = errors.New("insufficient points")
	ErrorForbidden          = errors.New("permission denied")
	ErrorInUse              = errors.New("record is in use")
)

// ValidationError is a user input problem that maps to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsDuplicateKey reports a unique-index violation from MySQL (1062) or sqlite.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
