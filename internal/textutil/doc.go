// Package textutil provides small string helpers for turning relay-supplied
// values into file names and terminal output.
package textutil
