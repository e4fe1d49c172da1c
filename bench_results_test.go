package burnindex

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// BenchResult holds one workload's timing distribution for one backend.
type BenchResult struct {
	Backend     string
	Workload    string
	TimeMin     time.Duration // fastest run
	TimeMax     time.Duration // slowest run
	TimeMedian  time.Duration // median run
	AllocsPerOp int64         // median allocs per run
	BytesPerOp  int64         // median bytes per run
}

// BenchResults collects results and prints them grouped by workload.
type BenchResults struct {
	results []BenchResult
}

func NewBenchResults() *BenchResults {
	return &BenchResults{results: make([]BenchResult, 0)}
}

func (br *BenchResults) AddResult(result BenchResult) {
	br.results = append(br.results, result)
}

// Len reports how many results were recorded.
func (br *BenchResults) Len() int {
	return len(br.results)
}

// PrintSummary prints one min/median/max table per workload.
func (br *BenchResults) PrintSummary(title string) {
	if len(br.results) == 0 {
		return
	}

	fmt.Printf("\n%s\n", title)
	fmt.Printf("%s\n", strings.Repeat("=", len(title)))

	groups := make(map[string][]BenchResult)
	for _, result := range br.results {
		groups[result.Workload] = append(groups[result.Workload], result)
	}
	workloads := make([]string, 0, len(groups))
	for w := range groups {
		workloads = append(workloads, w)
	}
	sort.Strings(workloads)

	backendOrder := map[string]int{"Pebble": 0, "Badger": 1, "LevelDB": 2}

	for i, workload := range workloads {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%s\n", workload)
		fmt.Printf("%s\n", strings.Repeat("-", len(workload)))

		results := groups[workload]
		sort.Slice(results, func(i, j int) bool {
			oi, okI := backendOrder[results[i].Backend]
			oj, okJ := backendOrder[results[j].Backend]
			if okI && okJ {
				return oi < oj
			}
			if okI != okJ {
				return okI
			}
			return results[i].Backend < results[j].Backend
		})

		var maxTime time.Duration
		for _, result := range results {
			if result.TimeMax > maxTime {
				maxTime = result.TimeMax
			}
		}
		unit := chooseTimeUnit(maxTime)

		fmt.Printf("%-12s | %-24s | %12s | %12s\n",
			"Backend", fmt.Sprintf("Time/Run (%s)", unit), "Allocs/Run", "Bytes/Run")
		fmt.Printf("%s\n", strings.Repeat("-", 69))
		for _, result := range results {
			fmt.Printf("%-12s | %-24s | %12s | %12s\n",
				result.Backend,
				formatTimeRange(result.TimeMin, result.TimeMedian, result.TimeMax, unit),
				formatCount(result.AllocsPerOp),
				formatMB(result.BytesPerOp))
		}
	}
	fmt.Println()
}

func chooseTimeUnit(maxTime time.Duration) string {
	switch {
	case maxTime >= time.Second:
		return "s"
	case maxTime >= time.Millisecond:
		return "ms"
	case maxTime >= time.Microsecond:
		return "μs"
	default:
		return "ns"
	}
}

func formatTimeRange(lo, median, hi time.Duration, unit string) string {
	var div float64
	switch unit {
	case "s":
		return fmt.Sprintf("%.2f/%.2f/%.2f", lo.Seconds(), median.Seconds(), hi.Seconds())
	case "ms":
		div = 1e6
	case "μs":
		div = 1e3
	default:
		return fmt.Sprintf("%d/%d/%d", lo.Nanoseconds(), median.Nanoseconds(), hi.Nanoseconds())
	}
	return fmt.Sprintf("%.1f/%.1f/%.1f",
		float64(lo.Nanoseconds())/div, float64(median.Nanoseconds())/div, float64(hi.Nanoseconds())/div)
}

// formatCount formats integers with thousands separators
func formatCount(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return sign + str
	}
	var out strings.Builder
	out.Grow(len(str) + len(str)/3)
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(digit)
	}
	return sign + out.String()
}

func formatMB(bytes int64) string {
	return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
}

// CalculateStats computes min, median, max from a slice of durations
func CalculateStats(times []time.Duration) (lo, median, hi time.Duration) {
	if len(times) == 0 {
		return 0, 0, 0
	}
	sorted := make([]time.Duration, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	lo, hi = sorted[0], sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}
	return lo, median, hi
}

// CalculateMedianInt64 computes median from a slice of int64 values
func CalculateMedianInt64(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
