// Package workflow implements the per-scenario state machine.
//
// A scenario starts in Generating, where the translate role produces a
// candidate. Evaluating fans the candidate out to every configured
// evaluator and joins on all of them. Aggregating applies the scoring
// policy and decides: below the threshold with refinement budget left the
// scenario moves to Refining, which replaces the candidate and starts a
// new round; otherwise it moves to Accepting, which hands the final state
// to the merger. Any failure ends the scenario in Failed.
//
// A scenario runs at most MaxRefine+1 evaluation rounds.
package workflow
