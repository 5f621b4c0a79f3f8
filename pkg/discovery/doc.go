// Package discovery implements mDNS/DNS-SD discovery of MP servers.
//
// Servers advertise the _sd400mp._tcp service on the local link. The
// instance name is free-form (usually the station name). TXT records carry:
//
//	api     API version reported by /api/version
//	scheme  "http" or "https" (default "http")
//	path    base path in front of /api (optional)
//	name    display name (optional)
//
// Browsing aggregates entries by instance name: addresses seen on several
// interfaces are merged into one Server.
package discovery
