// Package generation defines the boundary between the application core and
// external LLM services. The Generator interface abstracts flashcard
// generation from highlight text so the rest of the application never
// couples to a specific provider.
package generation
