package picker

import (
	"sort"

	"github.com/rewired-gh/powerpick/internal/models"
)

// Counts tallies how often each main number and each special number appears
// across draws. All main-number columns are pooled into one count.
func Counts(draws []models.DrawRecord) (main, special map[int]int) {
	main = make(map[int]int)
	special = make(map[int]int)
	for _, d := range draws {
		for _, n := range d.Main {
			main[n]++
		}
		if d.Special != nil {
			special[*d.Special]++
		}
	}
	return main, special
}

// Rank orders counts by descending frequency. Equal counts are ordered by
// ascending number so the ranking is stable for a given history.
func Rank(counts map[int]int) []models.Frequency {
	ranking := make([]models.Frequency, 0, len(counts))
	for n, c := range counts {
		ranking = append(ranking, models.Frequency{Number: n, Count: c})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].Number < ranking[j].Number
	})
	return ranking
}

// Top returns the numbers of the first n entries of a ranking.
func Top(ranking []models.Frequency, n int) []int {
	if n > len(ranking) {
		n = len(ranking)
	}
	top := make([]int, n)
	for i := 0; i < n; i++ {
		top[i] = ranking[i].Number
	}
	return top
}

// RecentNumbers collects the main numbers of the first n draws. n <= 0 yields an empty set.
func RecentNumbers(draws []models.DrawRecord, n int) map[int]bool {
	n = max(n, 0)
	if n > len(draws) {
		n = len(draws)
	}
	recent := make(map[int]bool)
	for _, d := range draws[:n] {
		for _, v := range d.Main {
			recent[v] = true
		}
	}
	return recent
}

// Exclude returns pool without the numbers in drop, keeping pool order.
func Exclude(pool []int, drop map[int]bool) []int {
	kept := make([]int, 0, len(pool))
	for _, n := range pool {
		if !drop[n] {
			kept = append(kept, n)
		}
	}
	return kept
}

// HasConsecutive reports whether any two neighbours of a sorted slice differ by exactly one.
func HasConsecutive(sorted []int) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] == 1 {
			return true
		}
	}
	return false
}
