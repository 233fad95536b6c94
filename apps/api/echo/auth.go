package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
)

const (
	contextTokenKey  = "userToken"
	contextCallerKey = "caller"
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject is the user id.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}

func newJWTConfig(secret string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secret),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(usr user.User, issuer string, expiresIn time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(expiresIn).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: usr.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// callerMiddleware resolves the authenticated caller and its roles once per request.
// Tokens whose subject is not a user id are rejected.
func callerMiddleware(svc *rbac.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if _, err = uuid.Parse(claims.Subject); err != nil {
				return errUnauthorized
			}
			caller, err := svc.ResolveCaller(ctx.Request().Context(), claims.Subject, claims.Email)
			if err != nil {
				return errors.Wrap(err, "resolving caller")
			}
			ctx.Set(contextCallerKey, caller)
			return next(ctx)
		}
	}
}

func getContextCaller(ctx echo.Context) (rbac.Caller, error) {
	if caller, ok := ctx.Get(contextCallerKey).(rbac.Caller); ok {
		return caller, nil
	}
	return rbac.Caller{}, errUnauthorized
}
