// Package spotify implements a hand-rolled client for the Spotify Web API.
//
// The client authenticates with OAuth2 (authorization code flow) and exposes
// the small API surface the save pipeline needs: the current user profile,
// playlist metadata, paginated playlist tracks, and the saved-tracks library
// endpoints.
//
// Every request passes through a [rate.Limiter] and a bounded retry loop that
// honors Retry-After on HTTP 429, since the library save phase can issue many
// requests in quick succession.
//
// Response types are based on https://developer.spotify.com/documentation/web-api/reference/
package spotify
