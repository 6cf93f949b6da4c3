// package services implements the Spotify Web API client used by the
// reconciliation engine, together with the rate-limited executor that every
// remote call is routed through.
//
// API reference: https://developer.spotify.com/documentation/web-api/reference/
package services
