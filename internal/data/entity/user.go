package entity

type UserRole string

const (
	RoleTraveler UserRole = "traveler"
	RoleGuide    UserRole = "guide"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	Base
	Username     string   `db:"username"`
	Email        string   `db:"email"`
	PasswordHash string   `db:"password"`
	Phone        *string  `db:"phone"`
	Role         UserRole `db:"role"`
	// HourlyRate applies to guides only; the estimated price of a booking
	// request is derived from it at acceptance time.
	HourlyRate float64 `db:"hourly_rate"`
	IsActive   bool    `db:"is_active"`
}
