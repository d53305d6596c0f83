// Package textutil extracts episode titles from generated text and turns
// them into safe object names.
package textutil
