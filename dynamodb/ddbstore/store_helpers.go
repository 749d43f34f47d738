package ddbstore

// incrementBytes returns the smallest key greater than every key with
// prefix b.
func incrementBytes(b []byte) []byte {
	result := make([]byte, len(b))
	copy(result, b)
	for i := len(result) - 1; i >= 0; i-- {
		if result[i] < 0xFF {
			result[i]++
			return result[:i+1]
		}
	}
	// All 0xFF: no finite upper bound, append instead.
	return append(result, 0xFF)
}
