package dto

type RefreshInput struct {
	RefreshToken string `json:"refresh_token"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshResult returns the new access token plus, when rotation is
// enabled, a replacement refresh token for the cookie.
type RefreshResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt int64
}
