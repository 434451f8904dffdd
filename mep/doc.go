// Package mep implements multi-event packet wire formats.
//
// An MEP is a UDP payload bundling event fragments from one detector
// subsystem. Parsing yields fragments that are views into the receive
// buffer; the buffer is reference-counted and freed when the last
// fragment is released.
package mep
