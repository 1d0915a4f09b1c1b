package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const contextKeyCSRFToken = "csrf_token"

// FormExpiredMessage is shown when a form arrives without a valid CSRF token.
const FormExpiredMessage = "The form expired. Reload the page and submit it again."

// CSRFMiddleware checks the gorilla/csrf token on every unsafe request of a
// browser session. It runs after the gate, so anonymous requests to
// protected pages were already sent to the login page. Requests the gate
// admitted by bearer token carry no cookies worth forging and skip the
// check. A rejected request stops here.
func CSRFMiddleware(secret []byte, secure bool) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(rejectForgedRequest)),
	)

	return func(c *gin.Context) {
		if authenticatedWith(c) == MethodBearer {
			c.Next()
			return
		}

		passed := false
		handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(contextKeyCSRFToken, csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		req := c.Request
		if !secure && req.TLS == nil {
			// Without this the origin check assumes https and rejects local forms
			req = csrf.PlaintextHTTPRequest(req)
		}
		handler.ServeHTTP(c.Writer, req)

		if !passed {
			c.Abort()
		}
	}
}

// rejectForgedRequest answers a request whose CSRF token did not verify.
// The sign-in pages are shown again with a notice.
func rejectForgedRequest(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}

	if back := refererPath(r); back == LoginPath || back == SetupPath {
		http.Redirect(w, r, back+"?error="+url.QueryEscape(FormExpiredMessage), http.StatusSeeOther)
		return
	}

	http.Error(w, FormExpiredMessage, http.StatusForbidden)
}

// refererPath returns the path of a same-host Referer, empty otherwise.
func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || (ref.Host != "" && ref.Host != r.Host) {
		return ""
	}
	return ref.Path
}

// GetCSRFToken returns the token to embed in the forms of this request.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(contextKeyCSRFToken)
}
