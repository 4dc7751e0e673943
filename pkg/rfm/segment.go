package rfm

// Segment labels.
const (
	SegmentChampions         = "Champions"
	SegmentLoyal             = "Loyal"
	SegmentPotentialLoyalist = "Potential Loyalist"
	SegmentAtRisk            = "At Risk"
	SegmentCantLose          = "Cant Lose"
	SegmentLost              = "Lost"
	SegmentOthers            = "Others"
)

type segmentRule struct {
	label string
	match func(r, f, m int) bool
}

// segmentRules is evaluated top to bottom; the first match wins.
var segmentRules = []segmentRule{
	{SegmentChampions, func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{SegmentLoyal, func(r, f, m int) bool { return r >= 3 && f >= 3 && m >= 3 }},
	{SegmentPotentialLoyalist, func(r, f, _ int) bool { return r >= 3 && f <= 2 }},
	{SegmentAtRisk, func(r, f, _ int) bool { return r <= 2 && f >= 3 }},
	{SegmentCantLose, func(r, f, m int) bool { return r <= 2 && f <= 2 && m >= 3 }},
	{SegmentLost, func(r, f, _ int) bool { return r <= 2 && f <= 2 }},
}

// AssignSegment maps a score triple to its segment label.
func AssignSegment(r, f, m int) string {
	for _, rule := range segmentRules {
		if rule.match(r, f, m) {
			return rule.label
		}
	}
	return SegmentOthers
}
