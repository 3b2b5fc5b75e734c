// Package naming derives output file names from input names and resolves
// collisions when several inputs of a batch run map to the same output.
package naming
