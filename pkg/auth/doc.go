// Package auth implements the portal's authentication core: password
// hashing, signed bearer tokens, login throttling and token revocation,
// orchestrated by Gateway.
//
// # Key Components
//
// PasswordHasher / BcryptHasher: salted, self-describing digests.
//
// Codec: HS256 tokens carrying a closed claims record (user id, username,
// canonical role, 128-bit hex jti, iat, exp, iss). Tokens live 24 hours by
// default.
//
//	codec, _ := auth.NewCodec(auth.CodecConfig{Secret: secret})
//	token, claims, _ := codec.Issue(auth.Subject{UserID: 7, Username: "alice", Role: auth.RoleStudent})
//
// Gateway: the request-facing state machine.
//
//	res, err := gw.Login(ctx, auth.LoginRequest{Username: "alice", Password: pw, Source: ip})
//	id, err := gw.Authenticate(ctx, token)
//	err = auth.RequireRole(id, auth.RoleTeacher)
//	_, err = gw.Logout(ctx, token)
//
// # Storage Ports
//
// Gateway depends only on the AccountStore, RateLimiter, RevocationRegistry
// and ProfileProvider interfaces. Implementations live under pkg/storage.
//
// # Errors
//
// Every failure leaving the gateway is an *Error with a stable Code and HTTP
// Status. Unknown usernames and wrong passwords share ErrInvalidCredentials;
// malformed, forged, expired and revoked tokens share ErrUnauthorized. The
// detailed reason is logged, never returned.
//
// # Roles
//
// "staff" is an alias for "teacher". Roles are canonicalized before they are
// compared or written into a token.
package auth
