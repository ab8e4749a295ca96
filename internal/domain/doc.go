// Package domain contains the core entities of the application: sources
// captured for learning, the flashcards generated from them, tags, and the
// review log that records every spaced-repetition transition.
//
// Entities validate themselves and carry no persistence or transport
// concerns. The spaced-repetition state machine that evolves a card's
// ReviewState lives in the srs subpackage.
package domain
