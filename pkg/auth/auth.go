package auth

import (
	"context"
	"os"

	"github.com/golang-jwt/jwt/v4"
)

const (
	AuthorizationHeader = "Authorization"
	Bearer              = "Bearer "
)

// JWTKey signs dashboard session tokens. Overridden via JWT_KEY.
var JWTKey = []byte(jwtKeyFromEnv())

func jwtKeyFromEnv() string {
	if k := os.Getenv("JWT_KEY"); k != "" {
		return k
	}
	return "backoffice-dev-key"
}

type Profile struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Claims struct {
	Profile Profile `json:"profile"`
	jwt.RegisteredClaims
}

type ctxKey int

const profileKey ctxKey = 1

func SetAuthContext(ctx context.Context, username, role string) context.Context {
	return context.WithValue(ctx, profileKey, Profile{Username: username, Role: role})
}

func FromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(profileKey).(Profile)
	return p, ok
}

const tokenKey ctxKey = 2

// SetToken keeps the raw bearer token so resource clients can attach it
// to upstream requests. Tokens are never persisted by the gateway.
func SetToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
