// Package diagnose classifies encoder diagnostic lines against an ordered
// table of known failure signatures and runs the decode-only pass that
// produces those lines.
//
// Table order is part of the contract: a line matching several signatures
// is attributed to the first one in [Signatures], not the most specific.
package diagnose
