package utils

import (
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// BCRYPT_COST overrides the hashing cost; out-of-range values fall back to the default.
func passwordCost() int {
	cost, err := strconv.Atoi(os.Getenv("BCRYPT_COST"))
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

func HashPassword(s string) ([]byte, error) {
	if len(s) < MinPasswordLength {
		return nil, NewValidationError("password", "must be at least 8 characters")
	}
	return bcrypt.GenerateFromPassword([]byte(s), passwordCost())
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}
