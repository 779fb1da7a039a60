// Package bitvec is a fixed-size bit-vector state driven by the engine.
//
// A Tx is an ordered list of index exchanges. Two Tx values are safe to
// batch only when the sets of indices they touch are disjoint. The rule is
// conservative: exchange(0,1) and exchange(1,0) are reported as colliding
// even though they would commute.
//
// Bit strings are written index 0 first: FromString("0100") has bit 1 set.
package bitvec
