// Package jwt issues and verifies the HS512 bearer tokens that carry the
// caller identity (user id, role name, optional group) into request contexts.
//
// Tokens are minted by the identity provider in production; this package
// only needs to verify them, but Generate is kept for the dev token tool and
// for tests.
package jwt
