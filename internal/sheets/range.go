package sheets

import (
	"fmt"
	"regexp"
	"strconv"
)

// rowRangePattern matches A1 ranges like "05.2025!A10:J10" and
// "'VAT Звіт'!A3". The sheet title may be quoted; only the first cell's row
// number matters for retirement.
var rowRangePattern = regexp.MustCompile(`^(?:'(.*)'|([^'!]+))!(?:[A-Z]+)(\d+)(?::[A-Z]+\d+)?$`)

// parseRowRange splits an A1 range into the tab title and the 1-based row
// number of its first cell.
func parseRowRange(rowRange string) (string, int64, error) {
	m := rowRangePattern.FindStringSubmatch(rowRange)
	if m == nil {
		return "", 0, fmt.Errorf("cannot parse sheet range %q", rowRange)
	}

	title := m[1]
	if title == "" {
		title = m[2]
	}
	row, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil || row <= 0 {
		return "", 0, fmt.Errorf("invalid row number in range %q", rowRange)
	}
	return title, row, nil
}
