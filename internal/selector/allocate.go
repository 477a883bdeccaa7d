package selector

import "sort"

// Bucket shares in percent. They sum to 100.
const (
	GapShare         = 60
	MaintenanceShare = 25
	StretchShare     = 15
)

// Allocation is the number of slots per bucket.
type Allocation struct {
	Gap         int `json:"gap"`
	Maintenance int `json:"maintenance"`
	Stretch     int `json:"stretch"`
}

// Total returns the sum of all buckets.
func (a Allocation) Total() int {
	return a.Gap + a.Maintenance + a.Stretch
}

// Allocate splits count across the three buckets by largest remainder. Equal
// remainders go to the bucket with the larger share. The result always sums to count.
func Allocate(count int) Allocation {
	if count <= 0 {
		return Allocation{}
	}
	shares := []int{GapShare, MaintenanceShare, StretchShare}
	sizes := make([]int, len(shares))
	rems := make([]int, len(shares))
	assigned := 0
	for i, s := range shares {
		sizes[i] = count * s / 100
		rems[i] = count * s % 100
		assigned += sizes[i]
	}

	order := []int{0, 1, 2}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rems[ia] != rems[ib] {
			return rems[ia] > rems[ib]
		}
		return shares[ia] > shares[ib]
	})
	for k := 0; assigned < count; k++ {
		sizes[order[k%len(order)]]++
		assigned++
	}

	return Allocation{Gap: sizes[0], Maintenance: sizes[1], Stretch: sizes[2]}
}

// apportion splits total across weights by largest remainder. Non-positive
// weights all around fall back to an even split. Ties favor the larger weight,
// then the earlier index.
func apportion(total int, weights []float64) []int {
	out := make([]int, len(weights))
	if total <= 0 || len(weights) == 0 {
		return out
	}

	var sum float64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	ws := make([]float64, len(weights))
	for i, w := range weights {
		switch {
		case sum == 0:
			ws[i] = 1
		case w > 0:
			ws[i] = w
		}
	}
	if sum == 0 {
		sum = float64(len(weights))
	}

	fracs := make([]float64, len(ws))
	assigned := 0
	for i, w := range ws {
		exact := float64(total) * w / sum
		out[i] = int(exact)
		fracs[i] = exact - float64(out[i])
		assigned += out[i]
	}

	order := make([]int, len(ws))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if fracs[ia] != fracs[ib] {
			return fracs[ia] > fracs[ib]
		}
		return ws[ia] > ws[ib]
	})
	for k := 0; assigned < total; k++ {
		out[order[k%len(order)]]++
		assigned++
	}
	return out
}
