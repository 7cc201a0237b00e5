// Package numeric holds the rounding helpers used when sizing inducer
// preparations: ceiling at a significant digit and fixed-decimal rounding.
package numeric
