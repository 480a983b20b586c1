package transport

import "net/http"

// CSRFHeader carries the page's CSRF token on mutating requests.
const CSRFHeader = "X-CSRFToken"

// CSRF attaches the token returned by token to every mutating request.
func CSRF(token func() string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !isMutating(req.Method) {
				return next.RoundTrip(req)
			}
			t := token()
			if t == "" || req.Header.Get(CSRFHeader) != "" {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set(CSRFHeader, t)
			return next.RoundTrip(r)
		})
	}
}

// Bearer attaches an Authorization header when token returns a value.
func Bearer(token func() string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			t := token()
			if t == "" || req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set("Authorization", "Bearer "+t)
			return next.RoundTrip(r)
		})
	}
}
