// Package codes generates the human-facing codes of an appointment: the
// public booking code and the two secrets the stylist must present to confirm
// and complete the service.
package codes

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	bookingAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	digits          = "0123456789"

	BookingPrefix = "BK-"
	bookingLength = 8
	SecretLength  = 6
)

// ErrMismatch is returned when a presented code does not match its hash.
var ErrMismatch = errors.New("code does not match")

// Secrets holds the plaintext codes handed out once at booking and their
// hashes for storage.
type Secrets struct {
	AppointmentCode     string
	CompletionCode      string
	AppointmentCodeHash string
	CompletionCodeHash  string
}

type Generator struct {
	Cost int
}

func NewGenerator() *Generator {
	return &Generator{Cost: bcrypt.DefaultCost}
}

// BookingCode returns e.g. "BK-7Q2MX9KD". Ambiguous characters are left out.
func (g *Generator) BookingCode() (string, error) {
	id, err := gonanoid.Generate(bookingAlphabet, bookingLength)
	if err != nil {
		return "", fmt.Errorf("generate booking code: %w", err)
	}
	return BookingPrefix + id, nil
}

// NewSecrets generates the appointment and completion codes and hashes them.
func (g *Generator) NewSecrets() (*Secrets, error) {
	s := &Secrets{}
	var err error
	if s.AppointmentCode, err = gonanoid.Generate(digits, SecretLength); err != nil {
		return nil, fmt.Errorf("generate appointment code: %w", err)
	}
	for {
		if s.CompletionCode, err = gonanoid.Generate(digits, SecretLength); err != nil {
			return nil, fmt.Errorf("generate completion code: %w", err)
		}
		if s.CompletionCode != s.AppointmentCode {
			break
		}
	}
	if s.AppointmentCodeHash, err = g.Hash(s.AppointmentCode); err != nil {
		return nil, err
	}
	if s.CompletionCodeHash, err = g.Hash(s.CompletionCode); err != nil {
		return nil, err
	}
	return s, nil
}

func (g *Generator) Hash(code string) (string, error) {
	cost := g.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	return string(hash), nil
}

// Verify compares a presented code with its stored hash.
func Verify(hash, code string) error {
	if hash == "" || code == "" {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return ErrMismatch
	}
	return nil
}
