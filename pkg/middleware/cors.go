package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration. AllowOrigins entries are exact
// origins, "*" or a wildcard subdomain such as "https://*.example.com".
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// DefaultCORSConfig allows any origin to call the API with a bearer token
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "Location"},
		MaxAge:        86400,
	}
}

// originMatcher decides whether an Origin header is allowed
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string // "https://" + ".example.com" pairs for wildcard entries
	schemes  []string
}

func newOriginMatcher(origins []string) *originMatcher {
	m := &originMatcher{exact: make(map[string]struct{}, len(origins))}
	if len(origins) == 0 {
		m.any = true
	}
	for _, o := range origins {
		switch {
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			m.schemes = append(m.schemes, scheme+"://")
			m.suffixes = append(m.suffixes, host)
		default:
			m.exact[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	return m
}

func (m *originMatcher) allows(origin string) bool {
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for i, suffix := range m.suffixes {
		rest, ok := strings.CutPrefix(origin, m.schemes[i])
		if ok && len(rest) > len(suffix) && strings.HasSuffix(rest, suffix) {
			return true
		}
	}
	return false
}

// CORSWithConfig answers preflight requests with 204 and decorates responses for allowed origins
func CORSWithConfig(config CORSConfig) gin.HandlerFunc {
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = DefaultCORSConfig().AllowMethods
	}
	matcher := newOriginMatcher(config.AllowOrigins)
	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")
	expose := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" || !matcher.allows(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if config.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		preflight := c.Request.Method == http.MethodOptions &&
			c.Request.Header.Get("Access-Control-Request-Method") != ""
		if !preflight {
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}
			c.Next()
			return
		}

		h.Set("Access-Control-Allow-Methods", methods)
		if headers != "" {
			h.Set("Access-Control-Allow-Headers", headers)
		}
		if config.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
