// Package jwt mints and verifies the short-lived signed access tokens issued
// alongside each refresh token. The refresh credential itself never passes
// through this package; see the token package for its sealed format.
package jwt
