package technique

import (
	"math"
	"testing"

	"github.com/ayusman/fretsense/internal/metrics"
)

func testRanges() map[metrics.Aspect]GoodRange {
	return map[metrics.Aspect]GoodRange{
		metrics.AspectShoulderAlignment: {Low: -5, High: 5},
		metrics.AspectWristAngle:        {Low: 10, High: 20},
		metrics.AspectHandMovement:      {Low: 0.6, High: 1.0},
		metrics.AspectFingerPosition:    {Low: 140, High: 170},
	}
}

func okAggregate(aspect metrics.Aspect, mean float64) Aggregate {
	return Aggregate{
		Aspect:      aspect,
		Mean:        mean,
		SampleCount: 10,
		TotalFrames: 10,
		Status:      StatusOK,
	}
}

func TestRuleBasedScoreAtCenter(t *testing.T) {
	scorer := NewRuleBasedScorer(testRanges())
	scores, err := scorer.Score([]Aggregate{okAggregate(metrics.AspectShoulderAlignment, 0)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[0].Score != 100 {
		t.Errorf("score at range center = %f, want 100", scores[0].Score)
	}
}

func TestRuleBasedScoreNeutralPeak(t *testing.T) {
	ranges := testRanges()
	ranges[metrics.AspectWristAngle] = GoodRange{Low: 10, High: 20, Neutral: 12}
	scorer := NewRuleBasedScorer(ranges)

	scores, err := scorer.Score([]Aggregate{
		okAggregate(metrics.AspectWristAngle, 12),
		okAggregate(metrics.AspectWristAngle, 15),
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[0].Score != 100 {
		t.Errorf("score at configured neutral = %f, want 100", scores[0].Score)
	}
	// The former midpoint is 3 off the neutral; with half-width 5 the
	// score decays to 100*(1 - 3/15).
	want := 100 * (1 - 3.0/15.0)
	if math.Abs(scores[1].Score-want) > 1e-6 {
		t.Errorf("score at range midpoint = %f, want %f", scores[1].Score, want)
	}
}

func TestRuleBasedScoreOutsideRange(t *testing.T) {
	scorer := NewRuleBasedScorer(testRanges())

	// Wrist mean of 25 is 10 off the center of [10,20]; with half-width 5
	// the score decays to 100*(1 - 10/15).
	scores, err := scorer.Score([]Aggregate{okAggregate(metrics.AspectWristAngle, 25)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	want := 100 * (1 - 10.0/15.0)
	if math.Abs(scores[0].Score-want) > 1e-6 {
		t.Errorf("score = %f, want %f", scores[0].Score, want)
	}
	if scores[0].Score <= 0 || scores[0].Score >= 100 {
		t.Errorf("moderate deviation should score strictly between 0 and 100, got %f", scores[0].Score)
	}
}

func TestRuleBasedScoreMonotonicDecay(t *testing.T) {
	scorer := NewRuleBasedScorer(testRanges())

	prev := 101.0
	for _, mean := range []float64{15, 18, 21, 25, 30, 40} {
		scores, err := scorer.Score([]Aggregate{okAggregate(metrics.AspectWristAngle, mean)})
		if err != nil {
			t.Fatalf("score at mean %f: %v", mean, err)
		}
		if scores[0].Score >= prev {
			t.Errorf("score at mean %f = %f, not below previous %f", mean, scores[0].Score, prev)
		}
		prev = scores[0].Score
	}

	// Far beyond the decay span the score clamps at 0.
	scores, _ := scorer.Score([]Aggregate{okAggregate(metrics.AspectWristAngle, 200)})
	if scores[0].Score != 0 {
		t.Errorf("extreme deviation score = %f, want 0", scores[0].Score)
	}
}

func TestRuleBasedScoreInsufficientPassesThrough(t *testing.T) {
	scorer := NewRuleBasedScorer(testRanges())
	scores, err := scorer.Score([]Aggregate{{Aspect: metrics.AspectHandMovement, Status: StatusInsufficientData}})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[0].Status != StatusInsufficientData {
		t.Errorf("status = %s, want insufficient_data preserved", scores[0].Status)
	}
	if scores[0].Score != 0 {
		t.Errorf("unscored aspect carries score %f, want 0", scores[0].Score)
	}
}

func TestComposite(t *testing.T) {
	scores := []AspectScore{
		{Aspect: metrics.AspectShoulderAlignment, Score: 80, Status: StatusOK},
		{Aspect: metrics.AspectWristAngle, Score: 60, Status: StatusOK},
		{Aspect: metrics.AspectHandMovement, Status: StatusInsufficientData},
	}

	composite, ok := Composite(scores, nil)
	if !ok {
		t.Fatal("expected a composite score")
	}
	if math.Abs(composite-70) > 1e-9 {
		t.Errorf("equal-weight composite = %f, want 70", composite)
	}

	weighted, ok := Composite(scores, map[metrics.Aspect]float64{
		metrics.AspectShoulderAlignment: 3,
		metrics.AspectWristAngle:        1,
	})
	if !ok {
		t.Fatal("expected a weighted composite score")
	}
	if math.Abs(weighted-75) > 1e-9 {
		t.Errorf("weighted composite = %f, want 75", weighted)
	}
}

func TestCompositeNoScore(t *testing.T) {
	scores := []AspectScore{
		{Aspect: metrics.AspectShoulderAlignment, Status: StatusInsufficientData},
		{Aspect: metrics.AspectWristAngle, Status: StatusInsufficientData},
	}

	composite, ok := Composite(scores, nil)
	if ok {
		t.Error("all-insufficient session must have no composite score")
	}
	if composite != 0 {
		t.Errorf("no-score composite value = %f, want 0", composite)
	}
}

func TestFeatureVectorLayout(t *testing.T) {
	aggregates := []Aggregate{
		{Aspect: metrics.AspectWristAngle, Mean: 15, Variance: 2, SampleCount: 8, TotalFrames: 10, Status: StatusOK},
		{Aspect: metrics.AspectShoulderAlignment, Status: StatusInsufficientData},
	}

	features := FeatureVector(aggregates)
	if len(features) != 3*len(metrics.Aspects()) {
		t.Fatalf("feature length = %d, want %d", len(features), 3*len(metrics.Aspects()))
	}

	// Insufficient shoulder aspect occupies the first triplet with zeros.
	for i := 0; i < 3; i++ {
		if features[i] != 0 {
			t.Errorf("feature %d = %f, want 0 for insufficient aspect", i, features[i])
		}
	}

	// Wrist aspect is second in canonical order.
	if features[3] != 15 || features[4] != 2 {
		t.Errorf("wrist mean/variance = %f/%f, want 15/2", features[3], features[4])
	}
	if math.Abs(features[5]-0.8) > 1e-9 {
		t.Errorf("wrist valid fraction = %f, want 0.8", features[5])
	}
}

func TestSortWorstFirst(t *testing.T) {
	scores := []AspectScore{
		{Aspect: metrics.AspectShoulderAlignment, Status: StatusInsufficientData},
		{Aspect: metrics.AspectWristAngle, Score: 90, Status: StatusOK},
		{Aspect: metrics.AspectHandMovement, Score: 40, Status: StatusOK},
	}

	SortWorstFirst(scores)
	if scores[0].Aspect != metrics.AspectHandMovement {
		t.Errorf("first = %s, want the worst-scoring aspect", scores[0].Aspect)
	}
	if scores[2].Aspect != metrics.AspectShoulderAlignment {
		t.Errorf("last = %s, want the insufficient aspect", scores[2].Aspect)
	}
}
