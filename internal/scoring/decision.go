package scoring

// Significance is a calibrated lookup on the share of matched variables.
// It is not an inferential statistic.
type Significance string

const (
	None        Significance = "none"
	Significant Significance = "significant"
	Strong      Significance = "strong"
	Excellent   Significance = "excellent"
)

// Decision is the hiring recommendation.
type Decision string

const (
	Reject          Decision = "reject"
	WeakMaybe       Decision = "weak_maybe"
	Maybe           Decision = "maybe"
	Recommend       Decision = "recommend"
	StrongRecommend Decision = "strong_recommend"
)

// significanceTable is expressed on the 22-variable scale and applied to
// other schema sizes by ratio.
var significanceTable = []struct {
	matches    int
	level      Significance
	confidence float64
}{
	{matches: 18, level: Excellent, confidence: 99.9},
	{matches: 16, level: Strong, confidence: 99.0},
	{matches: 14, level: Significant, confidence: 95.0},
}

const significanceScale = 22

// ClassifySignificance maps matches out of total to a significance level
// and its confidence. Thresholds are inclusive.
func ClassifySignificance(matches, total int) (Significance, float64) {
	if total <= 0 {
		return None, 0
	}
	for _, row := range significanceTable {
		// matches/total >= row.matches/22, in integers.
		if matches*significanceScale >= row.matches*total {
			return row.level, row.confidence
		}
	}
	return None, 0
}

// Decide maps a total score and the number of missing critical
// requirements to a decision. Missing critical requirements lower the tier
// a score alone would earn.
func Decide(score float64, missingCritical int) Decision {
	switch {
	case score >= 85 && missingCritical == 0:
		return StrongRecommend
	case score >= 70 && missingCritical == 0:
		return Recommend
	case score >= 60 && missingCritical <= 1:
		return Maybe
	case score >= 40:
		return WeakMaybe
	default:
		return Reject
	}
}
