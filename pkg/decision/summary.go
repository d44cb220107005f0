package decision

import (
	"sort"
	"time"

	"mercator-hq/themis/pkg/policy"
)

// topRejectionReasonLimit caps how many failing-rule messages a query
// summary reports.
const topRejectionReasonLimit = 5

// Summarize aggregates a filtered decision set. The input must be the full
// filtered set, not a single page, or the numbers lie under pagination.
func Summarize(decisions []*Decision) *Summary {
	summary := &Summary{
		Total:           int64(len(decisions)),
		CountsByOutcome: make(map[policy.Outcome]int64),
	}

	var (
		hoursSum   float64
		hoursCount int
	)
	reasonCounts := make(map[string]int)

	for _, d := range decisions {
		summary.CountsByOutcome[d.Outcome]++

		if earliest := earliestCollection(d); earliest != nil && earliest.Before(d.DecisionTimestamp) {
			hoursSum += d.DecisionTimestamp.Sub(*earliest).Hours()
			hoursCount++
		}

		if d.Outcome != policy.OutcomeRejected {
			continue
		}
		for _, result := range d.RuleResults {
			if !result.Passed && result.Message != "" {
				reasonCounts[result.Message]++
			}
		}
	}

	if hoursCount > 0 {
		summary.AverageDecisionTimeHours = hoursSum / float64(hoursCount)
	}
	summary.TopRejectionReasons = topReasons(reasonCounts, topRejectionReasonLimit)

	return summary
}

// earliestCollection returns the earliest collected-at timestamp among the
// decision's evidence, or nil when none carries one.
func earliestCollection(d *Decision) *time.Time {
	var earliest *time.Time
	for i := range d.EvidenceReferences {
		collected := d.EvidenceReferences[i].CollectedAt
		if collected == nil {
			continue
		}
		if earliest == nil || collected.Before(*earliest) {
			earliest = collected
		}
	}
	return earliest
}

// topReasons ranks messages by frequency descending, ties alphabetically,
// capped at limit.
func topReasons(counts map[string]int, limit int) []string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if counts[reasons[i]] != counts[reasons[j]] {
			return counts[reasons[i]] > counts[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	if len(reasons) > limit {
		reasons = reasons[:limit]
	}
	return reasons
}
