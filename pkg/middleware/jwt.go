package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/event-management/pkg/response"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
)

// Context keys for identity information
const (
	ContextKeyUserID    = "user_id"
	ContextKeyEmail     = "email"
	ContextKeyAuthError = "auth_error"
)

// JWTConfig holds configuration for JWT middleware
type JWTConfig struct {
	// Secret key for validating HMAC-signed tokens
	Secret string
	// Issuer, when set, must match the iss claim
	Issuer string
}

// Claims is the identity carried by a bearer token
type Claims struct {
	UserID int64
	Email  string
}

// ParseBearer validates an Authorization header value and returns its claims
func ParseBearer(authHeader string, config *JWTConfig) (*Claims, error) {
	if authHeader == "" {
		return nil, ErrMissingAuthHeader
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return nil, ErrInvalidAuthFormat
	}
	tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tokenString == "" {
		return nil, ErrInvalidAuthFormat
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := userIDClaim(claims)
	if !ok {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	email, _ := claims["email"].(string)

	return &Claims{UserID: userID, Email: email}, nil
}

// userIDClaim accepts user_id (string or number) and falls back to sub
func userIDClaim(claims jwt.MapClaims) (int64, bool) {
	raw, ok := claims["user_id"]
	if !ok {
		raw, ok = claims["sub"]
	}
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// Authenticate attaches the bearer identity when one is presented. Requests
// without a token pass through untouched so public routes keep working; an
// invalid token is remembered and rejected by RequireAuth.
func Authenticate(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		claims, err := ParseBearer(authHeader, config)
		if err != nil {
			c.Set(ContextKeyAuthError, err)
			c.Next()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// RequireAuth rejects requests that carry no valid identity
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthenticated())
			return
		}
		c.Next()
	}
}

// GetUserID extracts user ID from gin context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetEmail extracts email from gin context
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(ContextKeyEmail)
	if !exists {
		return "", false
	}
	e, ok := email.(string)
	return e, ok
}

// GetAuthError returns the reason a presented token was rejected
func GetAuthError(c *gin.Context) error {
	v, exists := c.Get(ContextKeyAuthError)
	if !exists {
		return nil
	}
	err, _ := v.(error)
	return err
}

// NewToken signs an HS256 token for userID. Used by tooling and tests; the
// service itself never issues credentials.
func NewToken(secret string, userID int64, ttl time.Duration) (string, error) {
	return IssueToken(&JWTConfig{Secret: secret}, userID, ttl)
}

// IssueToken signs a token that config accepts, including its issuer
func IssueToken(config *JWTConfig, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": strconv.FormatInt(userID, 10),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if config.Issuer != "" {
		claims["iss"] = config.Issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Secret))
}
