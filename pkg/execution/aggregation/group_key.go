package aggregation

import (
	"fmt"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// noGroupKey is the single bucket every row falls into when an Aggregate
// has no GROUP BY field.
const noGroupKey = "NO_GROUPING"

// groupKeyOf extracts the string key used to bucket t and the original
// field it was derived from, so a grouped result can re-emit the group
// value in its native type instead of collapsing it to a string.
func groupKeyOf(t *tuple.Tuple, groupByField int) (string, types.Field, error) {
	if groupByField == NoGrouping {
		return noGroupKey, nil, nil
	}

	field, err := t.GetField(groupByField)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read grouping field: %w", err)
	}
	return field.String(), field, nil
}
