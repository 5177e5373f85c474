package pipeline

// Group is the aggregate for one distinct key.
type Group struct {
	Key   string `json:"key"`
	Count int    `json:"count"`

	// Sum is the exact total and is not rounded.
	Sum float64 `json:"sum"`

	// Mean is Sum/Count rounded to 4 decimal places, so it can differ from
	// Sum/Count in the fifth decimal. Use Sum and Count for further
	// arithmetic.
	Mean float64 `json:"mean"`
}

// GroupBy accumulates count and sum of value per distinct key, then computes
// each group's mean. Groups are returned in order of first occurrence.
func GroupBy[T any](items []T, key func(T) string, value func(T) float64) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Count++
		groups[i].Sum += value(item)
	}

	for i := range groups {
		groups[i].Mean = Round(groups[i].Sum/float64(groups[i].Count), 4)
	}
	return groups
}
