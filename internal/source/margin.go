package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/engine"
	"github.com/mverret/binance-ledger/internal/model"
)

// Margin history endpoints move rows older than roughly three months behind
// an archived flag, so every window is scanned in two phases: archived
// first, then live. The phase lives in the page cursor.
const (
	marginPhaseArchived = "archived"
	marginPhaseLive     = "live"
)

func marginCursor(cursor string) (archived bool, page int, err error) {
	if cursor == "" {
		return true, 1, nil
	}
	phase, num, ok := strings.Cut(cursor, ":")
	if !ok {
		return false, 0, fmt.Errorf("bad margin cursor %q", cursor)
	}
	page, err = strconv.Atoi(num)
	if err != nil || page < 1 {
		return false, 0, fmt.Errorf("bad margin cursor %q", cursor)
	}
	switch phase {
	case marginPhaseArchived:
		return true, page, nil
	case marginPhaseLive:
		return false, page, nil
	default:
		return false, 0, fmt.Errorf("bad margin cursor %q", cursor)
	}
}

func nextMarginCursor(got, size int, archived bool, page int) string {
	if got >= size {
		phase := marginPhaseLive
		if archived {
			phase = marginPhaseArchived
		}
		return phase + ":" + strconv.Itoa(page+1)
	}
	if archived {
		return marginPhaseLive + ":1"
	}
	return ""
}

// marginSource shares the two-phase pagination shell of the cross-margin
// history endpoints.
type marginSource struct {
	element    model.ElementType
	cfg        Config
	partitions func(ctx context.Context) ([]string, error)
	fetch      func(ctx context.Context, q api.MarginQuery) ([]model.Record, int, error)
}

func (s *marginSource) Element() model.ElementType { return s.element }

func (s *marginSource) Partitions(ctx context.Context) ([]string, error) {
	return s.partitions(ctx)
}

func (s *marginSource) Window() engine.Window {
	return engine.Window{MaxSpan: s.cfg.window(), PageSize: s.cfg.PageSize}
}

func (s *marginSource) FetchPage(ctx context.Context, partition string, start, end int64, cursor string) ([]model.Record, string, error) {
	archived, page, err := marginCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	asset := partition
	if partition == model.MarginInterestPartition {
		asset = "" // interest history is account-wide
	}
	records, got, err := s.fetch(ctx, api.MarginQuery{
		Asset:     asset,
		StartTime: start,
		EndTime:   end,
		Current:   page,
		Size:      s.cfg.PageSize,
		Archived:  archived,
	})
	if err != nil {
		return nil, "", err
	}
	return records, nextMarginCursor(got, s.cfg.PageSize, archived, page), nil
}

// NewMarginLoans syncs confirmed cross-margin borrows, partitioned by asset.
func NewMarginLoans(client *api.Client, universe Universe, cfg Config) engine.Source {
	return &marginSource{
		element:    model.CrossMarginLoans,
		cfg:        cfg,
		partitions: universe.MarginAssets,
		fetch: func(ctx context.Context, q api.MarginQuery) ([]model.Record, int, error) {
			list, err := client.MarginLoans(ctx, q)
			if err != nil {
				return nil, 0, err
			}
			records := make([]model.Record, 0, len(list.Rows))
			for _, row := range list.Rows {
				if row.Status != loanStatusConfirmed {
					continue
				}
				p := &amountParser{}
				rec := model.MarginLoan{
					TxID:      row.TxID,
					Asset:     row.Asset,
					LoanTime:  row.Timestamp,
					Principal: p.parse(row.Principal),
				}
				if p.err != nil {
					return nil, 0, p.err
				}
				records = append(records, rec)
			}
			return records, len(list.Rows), nil
		},
	}
}

// NewMarginRepays syncs confirmed cross-margin repayments, partitioned by
// asset.
func NewMarginRepays(client *api.Client, universe Universe, cfg Config) engine.Source {
	return &marginSource{
		element:    model.CrossMarginRepays,
		cfg:        cfg,
		partitions: universe.MarginAssets,
		fetch: func(ctx context.Context, q api.MarginQuery) ([]model.Record, int, error) {
			list, err := client.MarginRepays(ctx, q)
			if err != nil {
				return nil, 0, err
			}
			records := make([]model.Record, 0, len(list.Rows))
			for _, row := range list.Rows {
				if row.Status != loanStatusConfirmed {
					continue
				}
				p := &amountParser{}
				rec := model.MarginRepay{
					TxID:      row.TxID,
					Asset:     row.Asset,
					RepayTime: row.Timestamp,
					Principal: p.parse(row.Principal),
					Interest:  p.parse(row.Interest),
				}
				if p.err != nil {
					return nil, 0, p.err
				}
				records = append(records, rec)
			}
			return records, len(list.Rows), nil
		},
	}
}

// NewMarginInterests syncs accrued cross-margin interest, account-wide
// under the fixed "cross" partition.
func NewMarginInterests(client *api.Client, cfg Config) engine.Source {
	return &marginSource{
		element: model.CrossMarginInterests,
		cfg:     cfg,
		partitions: func(context.Context) ([]string, error) {
			return []string{model.MarginInterestPartition}, nil
		},
		fetch: func(ctx context.Context, q api.MarginQuery) ([]model.Record, int, error) {
			list, err := client.MarginInterests(ctx, q)
			if err != nil {
				return nil, 0, err
			}
			records := make([]model.Record, 0, len(list.Rows))
			for _, row := range list.Rows {
				p := &amountParser{}
				rec := model.MarginInterest{
					Asset:        row.Asset,
					InterestTime: row.InterestAccuredTime,
					Interest:     p.parse(row.Interest),
					InterestType: row.Type,
				}
				if p.err != nil {
					return nil, 0, p.err
				}
				records = append(records, rec)
			}
			return records, len(list.Rows), nil
		},
	}
}
