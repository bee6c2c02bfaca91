package gateway

import (
	"fmt"
	"strings"
)

// Denylist is scanned in this order; the first keyword found is reported.
var Denylist = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT", "UPDATE"}

// PolicyViolation names the denylisted keyword a query contained.
type PolicyViolation struct {
	Keyword string
}

func (v *PolicyViolation) Error() string {
	return fmt.Sprintf("Query contains potentially dangerous keyword: %s. Only SELECT queries are allowed.", v.Keyword)
}

// CheckReadOnly rejects sql if its upper-cased text contains any denylisted
// keyword as a substring. This is a textual guard and not a parser: a keyword
// inside a literal, comment or identifier (e.g. "updated_at") is rejected too,
// and statements that mutate without using a listed keyword pass.
func CheckReadOnly(sql string) error {
	upper := strings.ToUpper(sql)
	for _, keyword := range Denylist {
		if strings.Contains(upper, keyword) {
			return &PolicyViolation{Keyword: keyword}
		}
	}
	return nil
}
