package models

import "time"

// Roles a user can register with.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// User is a registered account.
//
// VerificationToken is set while the account is unverified. OTP and
// OTPExpiry are either both nil or both set.
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	Description       string     `json:"description"`
	PhotoURL          string     `json:"photoUrl"`
	IsVerified        bool       `json:"isVerified"`
	VerificationToken *string    `json:"-"`
	OTP               *string    `json:"-"`
	OTPExpiry         *time.Time `json:"-"`
	IsLoggedIn        bool       `json:"isLoggedIn"`
	CreatedAt         time.Time  `json:"createdAt"`

	EnrolledCourses []string `json:"enrolledCourses"`
}

// UserSummary is the public projection of a user embedded in course views.
type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoUrl"`
	Description string `json:"description,omitempty"`
}

// HasPendingOTP reports whether a password reset code is outstanding.
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTPExpiry != nil
}
