// Package app assembles the registration server from configuration: it picks
// the store, password hasher, rate limiter and HTTP framework, and runs the
// server until its context is canceled.
package app
