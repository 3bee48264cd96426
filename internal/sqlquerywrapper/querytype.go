package sqlquerywrapper

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// queryTypeIndex works for both regexes as long as the groups order is not changed
	queryTypeIndex int
	queryTypeRegex *regexp.Regexp

	unknownQueryTypeRegex = regexp.MustCompile(`^(?i)\s*(?P<type>\w+)\s*`)
	whitespaceRegex       = regexp.MustCompile(`\s+`)
)

func init() {
	tokens := []string{
		"SELECT", "WITH",
		`CREATE\s+TABLE`, `DROP\s+TABLE`, `ALTER\s+TABLE`,
		"SET", "SHOW",
	}
	queryTypeRegex = regexp.MustCompile(`^(?i)\s*(?P<type>` + strings.Join(tokens, "|") + `)\b`)

	var found bool
	for i, name := range queryTypeRegex.SubexpNames() {
		if name == "type" {
			found = true
			queryTypeIndex = i
			break
		}
	}
	if !found {
		panic(fmt.Errorf("sqlquerywrapper: query type index not found"))
	}
}

// GetQueryType returns the leading statement keyword(s) of query, upper cased
// and joined by underscores, and whether it is one of the known types.
func GetQueryType(query string) (string, bool) {
	var (
		expected  bool
		queryType = ""
		submatch  = queryTypeRegex.FindStringSubmatch(query)
	)

	if len(submatch) > queryTypeIndex {
		expected = true
		queryType = submatch[queryTypeIndex]
		if strings.EqualFold(queryType, "WITH") {
			queryType = "SELECT"
		}
	}

	if queryType == "" {
		submatch = unknownQueryTypeRegex.FindStringSubmatch(query)
		if len(submatch) > queryTypeIndex {
			queryType = submatch[queryTypeIndex]
		}
	}

	if queryType == "" {
		return "UNKNOWN", false
	}
	return strings.ToUpper(whitespaceRegex.ReplaceAllString(queryType, "_")), expected
}
