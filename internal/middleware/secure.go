package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureOptions returns the security headers every response carries.
//
// The API only serves JSON, so the content security policy forbids
// everything. isDevelopment turns off the HTTPS-only checks for local runs.
func SecureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:         isDevelopment,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
	}
}

// Secure returns a middleware that adds the headers described by opts.
func Secure(opts secure.Options) func(next http.Handler) http.Handler {
	return secure.New(opts).Handler
}
