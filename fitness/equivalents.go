package fitness

import (
	"fmt"
	"math/rand"
)

// Equivalent maps a real-world comparison to its size in the source unit
// (steps for distances, calories for energy).
type Equivalent struct {
	Name   string
	Amount float64
}

var stepEquivalents = []Equivalent{
	{"miles walked", 2000},
	{"kilometers walked", 1250},
	{"flights of stairs climbed", 20},
	{"heights of the CN Tower", 500},
	{"lengths of the Amazon River", 60000000},
	{"widths of Australia", 400000000},
	{"depths of Lake Baikal", 10000},
	{"spans of the Brooklyn Bridge", 500},
	{"lengths of a T-Rex", 150},
	{"heights of the Leaning Tower of Pisa", 60},
	{"widths of the English Channel", 3000000},
	{"distances to the North Pole", 200000000},
	{"lengths of the Yangtze River", 60000000},
	{"depths of the Grand Canyon", 2000},
	{"spans of the Tacoma Narrows Bridge", 1000},
	{"heights of the Washington Monument", 170},
	{"lengths of a school bus", 150},
	{"distances to the South Pole", 250000000},
	{"circumferences of Earth", 22500000},
	{"widths of the Pacific Ocean", 15000000000},
	{"heights of the Space Needle", 180},
	{"lengths of the Mississippi River", 40000000},
	{"depths of the Challenger Deep", 10000},
	{"spans of the Verrazzano Bridge", 1500},
}

var calorieEquivalents = []Equivalent{
	{"energy to boil a cup of water", 10000},
	{"energy in a AA battery", 2000},
	{"energy to run a 100W lightbulb for 1 hour", 86000},
	{"energy to run a satellite for 5 minutes", 800000},
}

// RelateSteps turns a step total into a comparison sentence. The candidate
// pool keeps entries whose ratio is under 100 and does not render as 0.00;
// when the pool is empty the largest (or smallest suitable) entry is used so
// a sentence always comes out. The random source is explicit so callers can
// pin the choice.
func RelateSteps(steps int, rng *rand.Rand) string {
	if steps < 0 {
		return "How?"
	}
	if steps == 0 {
		return "No steps taken yet!"
	}
	item, quantity := pickEquivalent(float64(steps), stepEquivalents, rng)
	return fmt.Sprintf("You've taken %d steps, which is equivalent to about %.2f %s.", steps, quantity, item.Name)
}

// RelateCalories is the calorie counterpart of RelateSteps.
func RelateCalories(calories int, rng *rand.Rand) string {
	if calories < 0 {
		return "How? "
	}
	if calories == 0 {
		return "No calories burned yet!"
	}
	item, quantity := pickEquivalent(float64(calories), calorieEquivalents, rng)
	return fmt.Sprintf("You've burned %d calories, which is %.2fx the %s.", calories, quantity, item.Name)
}

func pickEquivalent(total float64, table []Equivalent, rng *rand.Rand) (Equivalent, float64) {
	var suitable []Equivalent
	for _, e := range table {
		if e.Amount > 0 && total/e.Amount < 100 {
			suitable = append(suitable, e)
		}
	}

	if len(suitable) == 0 {
		// Everything overflows the bound, show against the largest entry.
		largest := table[0]
		for _, e := range table[1:] {
			if e.Amount > largest.Amount {
				largest = e
			}
		}
		return largest, total / largest.Amount
	}

	var displayable []Equivalent
	for _, e := range suitable {
		if fmt.Sprintf("%.2f", total/e.Amount) != "0.00" {
			displayable = append(displayable, e)
		}
	}

	if len(displayable) == 0 {
		// Everything rounds to zero, show against the smallest suitable entry.
		smallest := suitable[0]
		for _, e := range suitable[1:] {
			if e.Amount < smallest.Amount {
				smallest = e
			}
		}
		return smallest, total / smallest.Amount
	}

	chosen := displayable[rng.Intn(len(displayable))]
	return chosen, total / chosen.Amount
}
