package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemPlatformUserID owns platform commission and retained dispute funds.
var SystemPlatformUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// User roles.
const (
	RoleCustomer = "customer"
	RoleStylist  = "stylist"
	RoleAdmin    = "admin"
	RolePlatform = "platform"
)

type User struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
