// Package language holds the catalog of supported spoken and signed language
// codes and the helpers used to validate, compare, and name them.
//
// Tag parsing and display names come from golang.org/x/text; sign language
// names are kept locally because CLDR does not cover them.
package language
