// Package preflight provides readiness checks for the filesystem paths and
// relay access sdportal depends on.
//
// The CLI "sdportal doctor" command runs RunAll and prints one line per
// check. Individual checks are exported so commands can reuse them.
package preflight
