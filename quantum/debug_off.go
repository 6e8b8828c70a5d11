//go:build !qdebug

package quantum

const debugChecks = false
