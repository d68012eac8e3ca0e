// Package imageenc turns image resources into self-contained base64 data URLs.
//
// Remote http(s) URLs are fetched over HTTP; anything else is read from the
// configured asset filesystem (the pose image directory). Failures are
// returned as-is and never retried.
package imageenc
