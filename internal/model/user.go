package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidEmail    = errors.New("model: invalid email")
	ErrInvalidPassword = errors.New("model: password must be 6 to 72 characters")
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Credentials struct {
	Email    string
	Password string
}

type Registration struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r Registration) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if n := len(r.Password); n < 6 || n > 72 {
		return ErrInvalidPassword
	}
	return nil
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
