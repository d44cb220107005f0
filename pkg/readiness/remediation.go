package readiness

import "sort"

// taskDependencies is the fixed policy table of documented prerequisites
// between category fixes. An edge A → B means the fix for B only makes
// sense after A's fix: e.g. jurisdiction assignment is meaningless until
// the entitlement problem is resolved. Edges are never inferred.
var taskDependencies = map[Category][]Category{
	CategoryJurisdiction:        {CategoryEntitlement},
	CategoryTransferEligibility: {CategoryEntitlement, CategoryAccountReadiness},
	CategoryComplianceDecision:  {CategoryIdentityVerification},
}

// buildRemediationTasks synthesizes ordered tasks from the failing
// categories. Ordering is severity descending, then estimated hours
// ascending, then category name, so identical inputs always produce the
// identical task list.
func buildRemediationTasks(results map[Category]*CategoryResult) []*RemediationTask {
	failing := make(map[Category]bool)
	for cat, result := range results {
		if !result.Passed && !result.Degraded {
			failing[cat] = true
		}
	}

	var tasks []*RemediationTask
	for cat, result := range results {
		if !failing[cat] {
			continue
		}

		task := &RemediationTask{
			Category:                 cat,
			ErrorCode:                result.ErrorCode,
			Description:              result.Message,
			Severity:                 result.Severity,
			OwnerHint:                result.OwnerHint,
			Actions:                  result.Actions,
			EstimatedResolutionHours: result.EstimatedResolutionHours,
		}

		// A dependency edge is only meaningful when the prerequisite
		// category is itself failing.
		for _, prereq := range taskDependencies[cat] {
			if failing[prereq] {
				task.DependsOn = append(task.DependsOn, prereq)
			}
		}
		sort.Slice(task.DependsOn, func(i, j int) bool {
			return task.DependsOn[i] < task.DependsOn[j]
		})

		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Severity.Rank() != tasks[j].Severity.Rank() {
			return tasks[i].Severity.Rank() > tasks[j].Severity.Rank()
		}
		if tasks[i].EstimatedResolutionHours != tasks[j].EstimatedResolutionHours {
			return tasks[i].EstimatedResolutionHours < tasks[j].EstimatedResolutionHours
		}
		return tasks[i].Category < tasks[j].Category
	})

	return tasks
}
