package common

// AccessTokenCookieName is the name of the http-only cookie carrying the
// access token between the SPA and the API.
const AccessTokenCookieName = "accessToken"

// BearerPrefix prefixes access tokens in the Authorization header.
const BearerPrefix = "Bearer "

