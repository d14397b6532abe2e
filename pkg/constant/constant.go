package constant

// Cookie and header names used across handlers and the client.
const (
	RefreshTokenCookie = "refreshToken"
	AccessTokenCookie  = "accessToken"
	AuthorizationKey   = "Authorization"
	BearerPrefix       = "Bearer "
)

// Locals keys under which the middleware stores the verified subject id
// and the token's issuance time.
const (
	UserIDKey        = "userID"
	TokenIssuedAtKey = "tokenIssuedAt"
)

// DummyPasswordHash is a valid bcrypt hash of a random throwaway string.
// Login compares against it when the email is unknown so that the
// unknown-email and wrong-password paths take comparable time.
const DummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
