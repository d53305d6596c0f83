// Package speech splits narration text into provider-sized chunks and
// stitches the synthesized audio back together.
//
// Split keeps the exact whitespace between chunks so Join reproduces the
// input byte for byte. Merge concatenates MP3 payloads without re-encoding
// and records where each segment landed in the output.
package speech
