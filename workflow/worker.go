package workflow

import "go.temporal.io/sdk/worker"

// RegisterReviewWorker registers the tier review workflow and its activities.
func RegisterReviewWorker(w worker.Registry) {
	w.RegisterWorkflow(TierReviewWorkflow)
	w.RegisterActivity(&ReviewActivities{})
}
