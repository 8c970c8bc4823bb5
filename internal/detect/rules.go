package detect

import (
	"strconv"
	"strings"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
)

// Rule is one compiled alert rule evaluated against every printer sample.
type Rule struct {
	Name      string
	Condition string
	Severity  alert.Severity
	Title     string
}

// compileRules maps config rules to their runtime form.
func compileRules(in []config.Rule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, r := range in {
		out = append(out, Rule{
			Name:      r.Name,
			Condition: r.Condition,
			Severity:  alert.ParseSeverity(r.Severity),
			Title:     r.Title,
		})
	}
	return out
}

// evalCondition evaluates a rule condition string against a metric sample.
//
// Supported expressions (metric operator value):
//
//	toner_level_pct < 10
//	printer_paper_jam == 1
//	printer_queue_depth > 50
//	printer_up == 0
//	drum_life_pct <= 5
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the metric is
// absent from the sample.
func evalCondition(cond string, sample map[string]float64) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	metric, op, rhs := parts[0], parts[1], parts[2]

	v, ok := sample[metric]
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
