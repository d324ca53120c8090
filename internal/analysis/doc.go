// Package analysis runs bulk compatibility analysis over a media library.
//
// The Aggregator discovers every video file, probes each one and folds the
// classifier verdicts into a Result. Probes may run in parallel, but files
// are always counted and reported in discovery order. A failed probe skips
// the file: it is counted in SkippedFiles and nowhere else.
//
// The Orchestrator sits in front of the Aggregator and the cache. A request
// is answered from the cached record unless it forces a refresh or no
// record exists. At most one run is in flight; later requests attach to it
// and first receive the starting event and the latest progress snapshot.
// Runs use a background context, so a subscriber going away never stops a
// run. The cache is written before the terminal event is published.
package analysis
