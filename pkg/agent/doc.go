// Package agent defines the role-based agent interface used by the
// scenario workflow and its implementation over a chat completion
// provider.
//
// Generation roles (translate, refine) answer {"hypo": "..."}. Evaluator
// roles answer with their own score field and annotations:
//
//	accuracy        accuracy_score, errors, summary
//	fluency         fluency_score, errors, summary
//	naturalness     naturalness_score, observations, summary
//	cs_ratio        ratio_score, computed_ratio, notes
//	socio_cultural  socio_cultural_score, issues, summary
//
// A missing score or a score outside [0, 10] is a *MalformedResponseError.
// An empty generated sentence is an *EmptyResponseError; wrap an Agent in
// Retrying to spend a fixed attempt budget on those.
package agent
