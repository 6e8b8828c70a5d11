//go:build qdebug

package quantum

// debugChecks enables norm assertions after every state mutation.
const debugChecks = true
