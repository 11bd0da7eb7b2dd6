// Package fsw prepares and normalizes Formal SignWriting (FSW) tokens.
//
// A token is either a full sign ("AS10000M518x529S14c20481x471") or a bare
// positioned symbol ("S10000482x483"). Bare symbols get the DefaultPosition
// box before normalization. Normalization needs symbol glyph sizes, which the
// Loader reads once and shares across callers.
package fsw
