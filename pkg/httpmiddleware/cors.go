package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
//
// The storefront authenticates browsers with a session cookie, so most
// deployments run with AllowCredentials set. In that mode the wildcard
// origin is invalid and the middleware echoes the specific allowed
// origin instead.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API. Empty, or the
	// single entry "*", allows every origin (only honored without
	// credentials).
	AllowOrigins []string

	// AllowMethods lists methods permitted in actual requests. Empty
	// defaults to the storefront verb set.
	AllowMethods []string

	// AllowHeaders lists request headers clients may send. Empty echoes
	// the preflight's Access-Control-Request-Headers back.
	AllowHeaders []string

	// AllowCredentials permits cookies on cross-origin requests.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header; negative sends "0" to disable caching.
	MaxAge int
}

// CORS returns a middleware that answers preflights and stamps CORS
// headers on actual responses. Vary headers are always set on
// origin-dependent responses so shared caches stay correct.
func CORS(cfg CORSConfig) Middleware {
	wildcard := len(cfg.AllowOrigins) == 0
	origins := make(map[string]string, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		origins[strings.ToLower(o)] = o
	}
	if cfg.AllowCredentials {
		// Wildcard + credentials is rejected by browsers; require an
		// origin match and echo it.
		wildcard = false
	}

	methods := strings.Join(cfg.AllowMethods, ", ")
	if methods == "" {
		methods = "GET, POST, PATCH, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")

	var maxAge string
	switch {
	case cfg.MaxAge > 0:
		maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		maxAge = "0"
	}

	resolve := func(origin string) string {
		if wildcard {
			return "*"
		}
		return origins[strings.ToLower(origin)]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin or non-browser caller.
				if !wildcard {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allow := resolve(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Origin")
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allow != "" {
					w.Header().Set("Access-Control-Allow-Origin", allow)
					w.Header().Set("Access-Control-Allow-Methods", methods)
					switch {
					case headers != "":
						w.Header().Set("Access-Control-Allow-Headers", headers)
					case r.Header.Get("Access-Control-Request-Headers") != "":
						w.Header().Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
					if maxAge != "" {
						w.Header().Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if !wildcard {
				w.Header().Add("Vary", "Origin")
			}
			if allow != "" {
				w.Header().Set("Access-Control-Allow-Origin", allow)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
