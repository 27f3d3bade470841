package domain

// RunSummary is the sole result contract of a harvest run. All recoverable
// failures are folded into its counters; nothing else escapes the top-level
// run call.
type RunSummary struct {
	// SourcesProcessed counts sources whose crawl reached the persisting step,
	// whether or not any items were new.
	SourcesProcessed int `json:"sources_processed"`
	// ItemsHarvested counts posts newly inserted into the store.
	ItemsHarvested int `json:"items_harvested"`
	// ItemsFailed counts per-item failures that were skipped.
	ItemsFailed int `json:"items_failed"`
	// AuthFailures counts failed authentication attempts, including the
	// re-authentication path after a liveness probe miss.
	AuthFailures int `json:"auth_failures"`
	// ChallengeRequired is set when the run was aborted by a suspected bot
	// challenge. Operators must distinguish this from "retry later" failures:
	// it needs human intervention.
	ChallengeRequired bool `json:"challenge_required"`
}
