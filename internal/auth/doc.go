// Package auth provides authentication and authorisation for GeoControl.
//
// Users log in with a username and password and receive an HS256 JWT whose
// subject is the username and which carries the user's role. Roles map to
// a static permission set:
//
//	viewer    network:read
//	operator  network:read, network:write, measurement:write
//	admin     everything, including user:manage
//
// Passwords are hashed with Argon2id and stored in PHC format.
package auth
