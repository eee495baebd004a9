package variations

import (
	"strconv"
	"strings"
)

const (
	// valueSeparator joins the prefix and the values of one identifier
	valueSeparator = "_"
	// decimalToken replaces the decimal point so identifiers stay filesystem safe
	decimalToken = "__"
	// listSeparator joins identifiers in the output
	listSeparator = ", "
	// listTerminator always ends the output, even when it is empty
	listTerminator = ","
)

// FormatValue renders one value as an identifier token.
// Integers print as plain decimals; floats always carry a fractional part
// (14.0, 0.25) with the point replaced by a double underscore.
func FormatValue(v Value) string {
	if v.Kind() == Integer {
		return strconv.FormatInt(v.Int64(), 10)
	}

	s := strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return strings.ReplaceAll(s, ".", decimalToken)
}

// FormatCombination renders prefix followed by the value tokens joined by "_"
func FormatCombination(prefix string, c Combination) string {
	var b strings.Builder
	b.WriteString(prefix)
	for i, v := range c {
		if i > 0 {
			b.WriteString(valueSeparator)
		}
		b.WriteString(FormatValue(v))
	}
	return b.String()
}

// JoinIdentifiers produces the clipboard string: identifiers joined with ", "
// and a trailing comma. No identifiers gives ",".
func JoinIdentifiers(ids []string) string {
	return strings.Join(ids, listSeparator) + listTerminator
}
