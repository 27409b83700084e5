// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diagnostics

import (
	"fmt"
	"strings"
)

// SelfAnalysis describes the current error state in the assistant's own words.
// Critical errors are counted over the five most recent records.
func (s *System) SelfAnalysis() string {
	n := s.errors.Len()
	if n == 0 {
		return "I'm running smoothly. All systems nominal."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I've encountered %d issues recently. ", n)
	critical := 0
	for _, rec := range s.errors.Recent(5) {
		if rec.Severity == SeverityCritical {
			critical++
		}
	}
	if critical > 0 {
		fmt.Fprintf(&b, "%d critical errors need attention. ", critical)
	}
	b.WriteString("Running diagnostics now...")
	return b.String()
}

// DescribeReport renders a diagnostic report as a short chat reply.
func DescribeReport(r DiagnosticReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnostics complete. Overall health: %s.\n", r.OverallHealth)
	for _, c := range Components {
		rep, ok := r.Components[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", c, rep.Status, rep.Message)
	}
	fmt.Fprintf(&b, "Uptime %s, %d requests, success rate %s.",
		r.Uptime, r.Performance.TotalRequests, r.Performance.SuccessRate)
	if len(r.Recommendations) > 0 {
		b.WriteString("\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "\n- %s", rec)
		}
	}
	return b.String()
}
