package analysis

// Customer segment names.
const (
	SegmentChampions          = "Champions"
	SegmentPotentialLoyalists = "Potential Loyalists"
	SegmentAtRisk             = "At Risk Customers"
	SegmentCantLose           = "Can't Lose"
	SegmentLost               = "Lost"
)

// SegmentFor maps a total RFM score to its customer segment. Bands are fixed,
// not quantile based:
//
//	>= 9     Champions
//	[6, 9)   Potential Loyalists
//	[5, 6)   At Risk Customers
//	[4, 5)   Can't Lose
//	< 4      Lost
func SegmentFor(score float64) string {
	switch {
	case score >= 9:
		return SegmentChampions
	case score >= 6:
		return SegmentPotentialLoyalists
	case score >= 5:
		return SegmentAtRisk
	case score >= 4:
		return SegmentCantLose
	default:
		return SegmentLost
	}
}
