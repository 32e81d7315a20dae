// Package httpapi is the daemon's HTTP surface: a plain net/http
// ServeMux exposing /health, /auth/login, /rtc, and /metrics. A fixed, small
// endpoint set like this doesn't earn a third-party router.
package httpapi
