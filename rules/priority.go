package rules

import "github.com/goreliks/pdf-hunter-go/domainmodel"

// DefaultPriorityThreshold is the priority cutoff filter_urls uses when
// the caller doesn't override it, per spec.md §4.9 ("priority ≤ 5").
const DefaultPriorityThreshold = 5

// FilterByPriority implements Agent D's filter_urls node: URLs with
// priority ≤ threshold move to IN_PROGRESS (queued for investigation);
// everything else moves to NOT_RELEVANT. threshold ≤ 0 falls back to
// DefaultPriorityThreshold, per spec.md §9's "configurable, default 5".
//
// Every input URL is expected to carry MissionStatus == URLStatusNew;
// the transition table in domainmodel enforces that invariant, so a URL
// already past NEW returns an error rather than being silently skipped.
// The one exception is a URL whose target status equals its current one
// (IN_PROGRESS within the threshold, NOT_RELEVANT above it): the table
// allows a same-status transition, so it passes through unchanged.
func FilterByPriority(urls []domainmodel.PrioritizedURL, threshold int) ([]domainmodel.PrioritizedURL, error) {
	if threshold <= 0 {
		threshold = DefaultPriorityThreshold
	}

	out := make([]domainmodel.PrioritizedURL, 0, len(urls))
	for _, u := range urls {
		next := domainmodel.URLStatusNotRelevant
		if u.Priority <= threshold {
			next = domainmodel.URLStatusInProgress
		}
		moved, err := u.WithStatus(next)
		if err != nil {
			return nil, err
		}
		out = append(out, moved)
	}
	return out, nil
}
