package protocol

import "time"

// Default TTLs by message type. Summaries go stale quickly; machine
// events stay useful for audit consumers a while longer.
var defaultTTLs = map[string]time.Duration{
	TypeFleetSummary:      2 * time.Minute,
	TypeMachineControlled: 30 * time.Minute,
	TypeMachineUpdated:    30 * time.Minute,
	TypeDiagnosticsReport: 30 * time.Minute,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

// DefaultTTLFor returns the default TTL for a message type.
func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired returns true if the envelope has passed its expiry time.
func IsExpired(env *Envelope, now time.Time) bool {
	if env.ExpiresAt.IsZero() {
		return false
	}
	return now.UTC().After(env.ExpiresAt)
}
