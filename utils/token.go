package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID       int    `json:"id"`
	BankId   string `json:"bank_id"`
	Username string `json:"username"`
	RoleId   int    `json:"role_id"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.StandardClaims
}

// read on every call so tests and the CLI can set API_SECRET after init
func jwtSecret() []byte {
	return []byte(os.Getenv("API_SECRET"))
}

func tokenLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func JwtGenerate(claim JwtCustomClaim) (string, error) {
	secret := jwtSecret()
	if len(secret) == 0 {
		return "", errors.New("API_SECRET is not set")
	}
	now := time.Now()
	claim.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(tokenLifespan()).Unix(),
		IssuedAt:  now.Unix(),
		Subject:   claim.Username,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &claim)
	return t.SignedString(secret)
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claim, nil
}
