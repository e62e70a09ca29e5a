package domain

import (
	"context"
)

// GuidelineLookup is the read-only knowledge base contract. Implementations
// must be immutable after construction and safe for unlimited concurrent
// readers.
type GuidelineLookup interface {
	// Lookup returns the guideline entry for the pair, or an
	// UnknownCombinationError when no entry is curated.
	Lookup(cancerType CancerType, stage string) (*GuidelineEntry, error)

	// Entries returns all curated entries, for listing supported
	// combinations.
	Entries() []*GuidelineEntry
}

// TreatmentMatcher compares a proposed treatment against a guideline entry.
type TreatmentMatcher interface {
	Evaluate(entry *GuidelineEntry, proposedTreatment string) AlignmentVerdict
}

// ConsultationRunner is the single operation the core exposes to callers.
type ConsultationRunner interface {
	RunConsultation(ctx context.Context, req *ConsultationRequest) (*ConsultationResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
