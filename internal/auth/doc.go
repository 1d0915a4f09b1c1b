// Package auth keeps the catalog behind local user accounts.
//
// Every request outside the public set (/login, /logout, /setup, /health,
// /ping, /metrics, /static/*) must carry either a session cookie issued by
// the login page or an "Authorization: Bearer <token>" header. Browsers
// without credentials are redirected to /login?next=<original location>;
// API clients receive 401. The route handler never runs in either case.
//
// Roles: admins and editors change the catalog, viewers browse it. The
// admin API is for admins only.
//
// # Middleware order
//
//	router.Use(sessions.Handler())   // load and save the session
//	router.Use(gate.Handler())       // admit or redirect
//	router.Use(auth.CSRFMiddleware(secret, secure))
//	edit := router.Group("", gate.RequireEditor())
//
// CSRF runs after the gate so that an anonymous form post is answered with
// the login redirect rather than a CSRF failure.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Random per start if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_RATE_LIMIT_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
package auth
