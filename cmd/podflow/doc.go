// Command podflow runs workflow codes against the configuration store.
//
// "podflow run" executes every active workflow once and exits non-zero when
// any run aborts. "podflow serve" exposes the same runs over HTTP. The
// remaining commands inspect the store, refresh catalogs and check
// provider readiness.
package main
