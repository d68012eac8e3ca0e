// Package jsonbig is the JSON codec used on every request and response body
// exchanged with the inference service.
//
// Identifiers issued by the service can exceed the range a float64 represents
// exactly, so decoding into untyped values turns every integer literal into a
// *big.Int and keeps fractional literals as json.Number text. Typed fields use
// the Int type, which accepts bare numbers or numeric strings and always
// encodes as a bare number.
package jsonbig
