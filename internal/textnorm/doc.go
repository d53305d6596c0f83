// Package textnorm repairs mojibake in text that crossed a charset boundary.
//
// UTF-8 bytes decoded as Windows-1252 or Latin-1 show up as sequences such as
// "â€™" or "Ã©". Normalize reverses that mapping where the recovered bytes
// form valid UTF-8, then applies a single ordered fix-up table for fragments
// that lost bytes along the way. Clean text passes through untouched and
// repeated application is a no-op.
package textnorm
