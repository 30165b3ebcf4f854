// Package dataset reads the XNLI source split and persists accepted
// code-switched sentences.
//
// The source side is LoadXNLI, which filters one language and builds the
// hypothesis lookup, and LoadHypotheses, which caches the ordered
// hypothesis list as JSON.
//
// The output side is Merger. Each accepted scenario is appended to an audit
// log and a translations file, and upserted into a TSV keyed by
// (premise, label). Rebuild regenerates the TSV from the audit log.
package dataset
