package source

import (
	"fmt"
	"strconv"
	"time"
)

// amountParser converts Binance's string amounts with a sticky error, so a
// conversion function can parse a whole record and check once.
type amountParser struct {
	err error
}

func (p *amountParser) parse(s string) float64 {
	if p.err != nil {
		return 0
	}
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("parse amount %q: %w", s, err)
		return 0
	}
	return f
}

// applyTimeLayout is the withdraw history timestamp format, UTC.
const applyTimeLayout = "2006-01-02 15:04:05"

func parseApplyTime(s string) (int64, error) {
	t, err := time.ParseInLocation(applyTimeLayout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse apply time %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// pageCursor decodes a 1-based page number cursor, "" meaning page 1.
func pageCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("bad page cursor %q", cursor)
	}
	return page, nil
}

// nextPageCursor returns the cursor for the page after current, or "" when
// the page came back short of the requested size.
func nextPageCursor(got, size, current int) string {
	if got < size {
		return ""
	}
	return strconv.Itoa(current + 1)
}
