// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diagnostics

import "strings"

// keywordRule is one entry of the shared classification table. Severity
// classification, the error taxonomy and the repair advisor all read from
// the same table so the logging and repair paths cannot drift apart.
type keywordRule struct {
	keyword  string
	severity Severity
	category Category

	// repair action; empty when the keyword has no remediation
	action   string
	mitigate bool
}

// keywordTable is ordered: among rules of equal severity, earlier rules win
// the category, and repair advice follows table order.
var keywordTable = []keywordRule{
	{keyword: "database", severity: SeverityCritical, category: CategoryDependencyUnreachable},
	{keyword: "connection", severity: SeverityCritical, category: CategoryDependencyUnreachable, action: "attempt reconnect", mitigate: false},
	{keyword: "authentication", severity: SeverityCritical, category: CategoryDependencyUnreachable},
	{keyword: "crash", severity: SeverityCritical, category: CategoryUnclassified},
	{keyword: "timeout", severity: SeverityWarning, category: CategoryDependencyUnreachable},
	{keyword: "rate limit", severity: SeverityWarning, category: CategoryRateLimited, action: "apply exponential backoff", mitigate: true},
	{keyword: "temporary", severity: SeverityWarning, category: CategoryDependencyUnreachable},
	{keyword: "memory", severity: SeverityInfo, category: CategoryResourceExhaustion, action: "evict old cache/archive entries", mitigate: true},
	{keyword: "malformed", severity: SeverityInfo, category: CategoryDataInconsistency},
	{keyword: "unexpected record", severity: SeverityInfo, category: CategoryDataInconsistency},
	{keyword: "invalid document", severity: SeverityInfo, category: CategoryDataInconsistency},
}

// Classification is the derived severity and category of an error kind.
type Classification struct {
	Severity Severity
	Category Category
}

// Classify derives severity and category from an error kind by
// case-insensitive keyword matching. The highest matched severity wins.
func Classify(kind string) Classification {
	lower := strings.ToLower(kind)
	out := Classification{Severity: SeverityInfo, Category: CategoryUnclassified}
	matched := false
	for _, rule := range keywordTable {
		if !strings.Contains(lower, rule.keyword) {
			continue
		}
		if !matched || rule.severity.rank() > out.Severity.rank() {
			out = Classification{Severity: rule.severity, Category: rule.category}
			matched = true
		}
	}
	return out
}

// SeverityOf is a convenience wrapper around Classify.
func SeverityOf(kind string) Severity {
	return Classify(kind).Severity
}

// AttemptRepair maps an error kind to a best-effort remediation. The first
// rule with a repair action that matches decides the outcome; connection
// problems are reported as not succeeded because this layer never re-verifies
// connectivity.
func AttemptRepair(kind string) RepairOutcome {
	lower := strings.ToLower(kind)
	out := RepairOutcome{Attempted: true, Actions: []string{}}
	for _, rule := range keywordTable {
		if rule.action == "" || !strings.Contains(lower, rule.keyword) {
			continue
		}
		out.Actions = append(out.Actions, rule.action)
		out.Succeeded = rule.mitigate
		return out
	}
	return out
}

// Aggregate rolls component statuses up into an overall health. Only failed
// components count: none is healthy, one is degraded, two or more is critical.
func Aggregate(statuses []ComponentStatus) OverallHealth {
	failed := 0
	for _, s := range statuses {
		if s == StatusFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return HealthHealthy
	case failed == 1:
		return HealthDegraded
	default:
		return HealthCritical
	}
}
