package usersvc

import "errors"

// User is a login account. Password holds either a bcrypt hash or, for
// accounts provisioned before hashing was introduced, the plaintext value.
type User struct {
	ID       uint64 `gorm:"primaryKey"`
	Username string `gorm:"size:50;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"`
}

type UserRepository interface {
	Create(username, password string) (User, error)
	FindByUsername(username string) (User, error)
	UpdatePassword(userID uint64, password string) error
	FindAll() ([]User, error)
}

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUserExists         = errors.New("user already exists")
)
