// Package cli implements portal-admin, the operator command line for the
// portal auth service.
//
// # Commands
//
// create-user: add an account with a bcrypt-hashed password
//
//	portal-admin create-user -username tom -password 'teachpass' -role staff
//
// Roles are canonicalized, so "staff" is stored as teacher.
//
// set-status: activate or deactivate an account
//
//	portal-admin set-status -username tom -status inactive
//
// hash-password: print a digest for seeding accounts by hand
//
//	portal-admin hash-password -password 'Secr3t!'
//
// prune: run the janitor once
//
//	portal-admin prune
//
// reset-limit: unblock a client IP, or a user's password changes
//
//	portal-admin reset-limit -key 203.0.113.7
//	portal-admin reset-limit -key user:42 -action password_change
//
// Commands read the same PORTAL_* configuration as the server. With the
// memory backends changes do not outlive the command, so account and limiter
// administration needs PORTAL_STORE=postgres and a postgres or redis limiter.
// The in-memory server seeds its one account from PORTAL_BOOTSTRAP_*.
package cli
