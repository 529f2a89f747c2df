package services

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels of idempotentMutations.
const (
	outcomeCreated       = "created"
	outcomeExisting      = "existing"
	outcomeRaceRecovered = "race_recovered"
)

var (
	// idempotentMutations counts deduplicated mutations by resource and how
	// they were resolved.
	idempotentMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotent_mutations_total",
			Help: "Deduplicated mutations by resource and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	// shoppingMerges counts shopping-list item writes by the aggregator.
	shoppingMerges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopping_list_item_merges_total",
			Help: "Shopping-list item writes by kind (inserted or incremented).",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(idempotentMutations, shoppingMerges)
}
