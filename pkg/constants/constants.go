// Package constants defines shared constants for the riskd inference service:
// model identity, risk level thresholds, and context keys used across layers.
package constants

// ================================================================================
// Model Identity
// ================================================================================

const (
	// ModelName identifies the deployed risk model family in persisted records.
	ModelName = "UNDERWRITE_RISK_MODEL"

	// FallbackModelVersion is the sentinel version recorded when the rule-based
	// scorer produced the response. It must never collide with a registry tag,
	// which always carries the "REGISTRY_" prefix.
	FallbackModelVersion = "RULE_BASED_FALLBACK"

	// RegistryVersionPrefix prefixes every model version reported by the
	// remote registry endpoint.
	RegistryVersionPrefix = "REGISTRY_"

	// DefaultRegistryVersion is assumed when the registry response carries a
	// score but no explicit version field.
	DefaultRegistryVersion = "REGISTRY_V2"
)

// ================================================================================
// Score Source
// ================================================================================

// ScoreSource identifies which path produced the risk score.
type ScoreSource string

const (
	// ScoreSourceRemote means the remote registry endpoint returned the score.
	ScoreSourceRemote ScoreSource = "REMOTE"
	// ScoreSourceFallback means the deterministic rule-based scorer ran.
	ScoreSourceFallback ScoreSource = "FALLBACK"
)

// ================================================================================
// Risk Levels
// ================================================================================

// RiskLevel buckets a risk score for downstream consumers.
type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "HIGH"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelLow    RiskLevel = "LOW"

	// RiskThresholdHigh and RiskThresholdMedium bound the level buckets:
	// score >= high -> HIGH, score >= medium -> MEDIUM, otherwise LOW.
	RiskThresholdHigh   = 0.6
	RiskThresholdMedium = 0.3
)

// LevelForScore maps a risk score in [0,1] to its level bucket.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= RiskThresholdHigh:
		return RiskLevelHigh
	case score >= RiskThresholdMedium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values stored in request contexts.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation identifier.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyTraceID carries the tracing identifier when tracing is enabled.
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// HTTP Headers
// ================================================================================

const (
	// HeaderRequestID is the inbound/outbound correlation header.
	HeaderRequestID = "X-Request-ID"
)
