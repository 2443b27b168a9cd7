// Package tasks implements batch orchestration over the request executor.
//
// The core abstraction is [Engine], which drives many independent API
// operations under a concurrency cap, adaptively shrinking concurrency and
// growing the inter-chunk delay when the remote service pushes back with
// sustained throttling. Operations emit progress updates via channels for
// non-blocking status reporting to the CLI layer.
package tasks
