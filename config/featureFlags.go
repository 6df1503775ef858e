package config

import (
	"os"
	"strings"
)

// TemporalReviewsEnabled routes tier-review decisions through the Temporal workflow.
//
// Set via env:
// - TEMPORAL_HOST_PORT=host:7233
// - FEATURE_TEMPORAL_REVIEWS=false to keep synchronous decisions even when Temporal is configured
func TemporalReviewsEnabled() bool {
	if strings.TrimSpace(os.Getenv("TEMPORAL_HOST_PORT")) == "" {
		return false
	}
	return boolFromEnv("FEATURE_TEMPORAL_REVIEWS", true)
}

// NotificationPublishEnabled turns on the outbox dispatcher's Pub/Sub publishing.
//
// Set via env:
// - FEATURE_NOTIFICATION_PUBLISH=true
func NotificationPublishEnabled() bool {
	return boolFromEnv("FEATURE_NOTIFICATION_PUBLISH", false)
}

// AllowSelfApproval lets a requester decide their own approval request.
// Off unless FEATURE_ALLOW_SELF_APPROVAL=true.
func AllowSelfApproval() bool {
	return boolFromEnv("FEATURE_ALLOW_SELF_APPROVAL", false)
}
