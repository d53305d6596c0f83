// Package storage persists step artifacts as named objects.
//
// Two backends implement ObjectStore: a local directory tree written with
// atomic renames, and a Google Cloud Storage bucket. Both resolve "latest
// object under a prefix" lookups used by latest-of-type locations, and both
// return a URI that is recorded as the step's output.
package storage
