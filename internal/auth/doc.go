// Package auth authenticates API callers with HS256 JWT bearer tokens.
//
// Three roles are recognised: viewer (read only), operator (manual
// overrides) and dispatcher (overrides and emergency preemption). The
// role-permission mapping is static; no database lookup happens on a
// request. Tokens are minted with the "nexusgrid token" command.
package auth
