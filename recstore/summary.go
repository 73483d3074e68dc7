package recstore

import (
	"fmt"
	"strconv"
)

// Summarize returns `count=<n>`.
// If the store has a numeric field, it also returns the sum of that field:
// `count=<n>, <field>_total=<sum>`. Missing or non-numeric values count as 0.
func (s *Store) Summarize(records []Record) string {
	res := fmt.Sprintf("count=%d", len(records))
	if s.numericField == "" {
		return res
	}
	var total int64
	for _, rec := range records {
		n, err := strconv.ParseInt(rec[s.numericField], 10, 64)
		if err != nil {
			continue
		}
		total += n
	}
	return res + fmt.Sprintf(", %s_total=%d", s.numericField, total)
}
