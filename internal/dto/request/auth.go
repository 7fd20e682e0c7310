package request

type RegisterRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=50"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,min=10,max=15"`
	Role       string  `json:"role" validate:"required,oneof=traveler guide"`
	HourlyRate float64 `json:"hourly_rate,omitempty" validate:"omitempty,gt=0"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}
