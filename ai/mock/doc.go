// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder returns deterministic unit vectors derived from a text hash, and
// MockSummarizer returns a canned reply that echoes the prompt length. Both
// accept function fields to override behavior and are safe for concurrent use.
package mock
