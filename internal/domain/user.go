package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("data not found!")
	ErrEmailTaken         = errors.New("User with this Email Already Exist. Please Login")
	ErrUsernameTaken      = errors.New("User with this Username Already Exist. Please Login")
	ErrTokenInvalid       = errors.New("Invalid Token")
	ErrUserNotVerified    = errors.New("User not verified, check email for verification!")
	ErrInvalidCredentials = errors.New("User not valid, make sure Email or Username and Password is correct")
	ErrLoginNotFound      = errors.New("User not found, make sure Email or Username is correct")
)

// User is an account record. CreatedAt and LastLogin are epoch milliseconds;
// LastLogin is nil until the first successful login.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Active       bool
	CreatedAt    int64
	LastLogin    *int64
}

// FreshnessMarker is the value embedded in access tokens and compared against
// the stored LastLogin on every protected request. Tokens issued before the
// most recent login carry a stale marker and are rejected.
func (u *User) FreshnessMarker() (int64, bool) {
	if u.LastLogin == nil {
		return 0, false
	}
	return *u.LastLogin / 1000, true
}
