package domain

import (
	"fmt"
	"strings"
)

// AllFeatures is the predicate selecting every feature of a layer.
const AllFeatures = "1=1"

// EqualsClause builds a `FIELD = 'value'` predicate with quotes escaped.
func EqualsClause(field, value string) string {
	return fmt.Sprintf("%s = '%s'", field, strings.ReplaceAll(value, "'", "''"))
}
