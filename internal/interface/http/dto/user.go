package dto

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email" example:"reader@example.com"`
	Password string `json:"password" binding:"required,min=8,max=20" example:"Passw0rd"`
	Nickname string `json:"nickname" binding:"required,min=2,max=50" example:"reader"`
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"reader@example.com"`
	Password string `json:"password" binding:"required" example:"Passw0rd"`
}

// RefreshRequest is the body of POST /users/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID       uint   `json:"id" example:"1"`
	Email    string `json:"email" example:"reader@example.com"`
	Nickname string `json:"nickname" example:"reader"`
	Role     string `json:"role" example:"member"`
}

type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in" example:"7200"` // seconds
}
