package fitness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelateStepsEdgeMessages(t *testing.T) {
	require.Equal(t, "No steps taken yet!", RelateSteps(0, testRNG()))
	require.Equal(t, "How?", RelateSteps(-5, testRNG()))
}

func TestRelateCaloriesEdgeMessages(t *testing.T) {
	require.Equal(t, "No calories burned yet!", RelateCalories(0, testRNG()))
	require.Equal(t, "How? ", RelateCalories(-1, testRNG()))
}

func TestRelateStepsSentenceShape(t *testing.T) {
	sentence := RelateSteps(10000, testRNG())
	require.True(t, strings.HasPrefix(sentence, "You've taken 10000 steps, which is equivalent to about "), sentence)
	require.True(t, strings.HasSuffix(sentence, "."), sentence)
}

func TestRelateStepsIsDeterministicWithSeed(t *testing.T) {
	first := RelateSteps(12345, testRNG())
	second := RelateSteps(12345, testRNG())
	require.Equal(t, first, second)
}

func TestRelateStepsFallsBackToLargestEntry(t *testing.T) {
	// Big enough that every entry's ratio reaches the upper bound.
	steps := 3_000_000_000_000
	sentence := RelateSteps(steps, testRNG())
	require.Contains(t, sentence, "widths of the Pacific Ocean")
	require.Contains(t, sentence, fmt.Sprintf("%.2f", float64(steps)/15000000000))
}

func TestRelateCaloriesFallsBackToSmallestSuitableEntry(t *testing.T) {
	// One calorie rounds to 0.00 against every entry, so the smallest
	// suitable entry is used.
	sentence := RelateCalories(1, testRNG())
	require.Equal(t, "You've burned 1 calories, which is 0.00x the energy in a AA battery.", sentence)
}

func TestRelateStepsRatioStaysInBand(t *testing.T) {
	for _, steps := range []int{1, 50, 500, 5000, 50000, 500000} {
		sentence := RelateSteps(steps, testRNG())
		var quantity float64
		var count int
		_, err := fmt.Sscanf(sentence, "You've taken %d steps, which is equivalent to about %f", &count, &quantity)
		require.NoError(t, err, sentence)
		require.Less(t, quantity, float64(100), sentence)
		require.NotEqual(t, "0.00", fmt.Sprintf("%.2f", quantity), sentence)
	}
}
