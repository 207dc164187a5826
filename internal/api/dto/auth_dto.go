package dto

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login. Role is optional; when asserted it
// must match the account's stored role.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthResponse is the body of successful register/login responses.
type AuthResponse struct {
	Message     string   `json:"message"`
	User        UserView `json:"user"`
	AccessToken string   `json:"accessToken"`
}
