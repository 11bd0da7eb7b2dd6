// Package segment splits spoken-language text into sentences.
//
// Boundaries follow Unicode UAX #29 via github.com/rivo/uniseg, refined by a
// small per-language abbreviation table so "Dr. Smith" stays in one sentence.
package segment
