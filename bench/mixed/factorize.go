package mixed

// Factor1 and Factor2 are the prime factors of TaskN.
const (
	Factor1 uint64 = 86028157
	Factor2 uint64 = 329545133
	TaskN          = Factor1 * Factor2
)

// Factorize returns the prime factors of n in non-decreasing order using
// trial division by 2 and then by odd divisors. Values up to 3 are returned
// as is.
func Factorize(n uint64) []uint64 {
	if n <= 3 {
		return []uint64{n}
	}
	var result []uint64
	d := uint64(2)
	for d < n {
		if n%d == 0 {
			result = append(result, d)
			n /= d
		} else if d == 2 {
			d = 3
		} else {
			d += 2
		}
	}
	return append(result, d)
}
