// Package provider is the boundary to the external feature-embedding
// service. The engine never implements embedding itself; it consumes this
// narrow interface, and Retrying is the one place transient provider
// failures are retried.
package provider

import "context"

// Extractor embeds one skill text per input entry into a vector the feature
// normalizer accepts. Outputs align with inputs by index.
type Extractor interface {
	Extract(ctx context.Context, texts []string) ([][]float64, error)
}
