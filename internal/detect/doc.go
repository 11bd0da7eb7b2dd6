// Package detect identifies the spoken language of free text.
//
// Two backends are available: github.com/pemistahl/lingua-go (accurate, with
// an expensive model build) and github.com/abadojack/whatlanggo (small and
// fast). Either way the backend is constructed once and reused.
package detect
