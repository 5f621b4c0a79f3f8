// Package connection keeps an MP server login session alive.
//
// This package handles:
//   - Exponential backoff for re-login and poll retries
//   - Jitter so that many clients do not retry in lockstep
//   - Session state tracking
//   - Automatic re-login when the server drops the session
//
// # Re-login Strategy
//
// When a session is lost (token rejected, server unreachable) the Manager
// retries the login function with exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful login
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
