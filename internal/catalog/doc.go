// Package catalog refreshes the two catalogs the engine reads from the
// configuration store: posted podcast episodes, fetched from the show's RSS
// feed, and the text-generation model list, merged from the providers' live
// model listings.
package catalog
