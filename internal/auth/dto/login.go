package dto

type LoginInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResult carries the raw refresh token from the service to the
// handler, which moves it into the httpOnly cookie. It is never part of a
// JSON response body.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt int64
}
