package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// User is the identity projection this service reads; the identity provider
// owns the records.
type User struct {
	ID          string
	DisplayName string
	Email       string
	Role        Role
	CreatedAt   time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// Vehicle is the listing projection used for inbox display only; messaging
// never mutates vehicles.
type Vehicle struct {
	ID      string
	Title   string
	OwnerID string
}

// IdentityResolver maps authenticated principals and internal ids to user
// records.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, externalAuthID string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

// VehicleLookup resolves vehicle display data.
type VehicleLookup interface {
	GetVehicle(ctx context.Context, id string) (*Vehicle, error)
}
