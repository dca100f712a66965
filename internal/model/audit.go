package model

// Audit event type constants
const (
	AuditEventBreakerOpened    = "BREAKER_OPENED"
	AuditEventBreakerHalfOpen  = "BREAKER_HALF_OPEN"
	AuditEventBreakerRecovered = "BREAKER_RECOVERED"
	AuditEventBreakerReset     = "BREAKER_RESET"
	AuditEventOriginEvicted    = "ORIGIN_EVICTED"
)
