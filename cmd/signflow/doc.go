// Command signflow drives translation sessions between spoken and signed
// languages. It runs one-shot translations locally and controls the
// signflow daemon over its HTTP API.
package main
