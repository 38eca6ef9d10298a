package source

import (
	"context"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/engine"
	"github.com/mverret/binance-ledger/internal/model"
)

// LendingTypes enumerates the lending product kinds; each is a partition.
var LendingTypes = []string{"DAILY", "ACTIVITY", "CUSTOMIZED_FIXED"}

// lendingSource shares the pagination shell of the three lending history
// endpoints, which differ only in the conversion step.
type lendingSource struct {
	client   *api.Client
	cfg      Config
	element  model.ElementType
	fetch    func(ctx context.Context, lendingType string, start, end int64, page, size int) ([]model.Record, int, error)
	pageSize int
}

func (s *lendingSource) Element() model.ElementType { return s.element }

func (s *lendingSource) Partitions(context.Context) ([]string, error) {
	return LendingTypes, nil
}

func (s *lendingSource) Window() engine.Window {
	return engine.Window{MaxSpan: s.cfg.window(), PageSize: s.pageSize}
}

func (s *lendingSource) FetchPage(ctx context.Context, lendingType string, start, end int64, cursor string) ([]model.Record, string, error) {
	page, err := pageCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	records, got, err := s.fetch(ctx, lendingType, start, end, page, s.pageSize)
	if err != nil {
		return nil, "", err
	}
	return records, nextPageCursor(got, s.pageSize, page), nil
}

// NewLendingPurchases syncs lending product subscriptions. Only SUCCESS
// rows are kept.
func NewLendingPurchases(client *api.Client, cfg Config) engine.Source {
	s := &lendingSource{client: client, cfg: cfg, element: model.LendingPurchases, pageSize: cfg.PageSize}
	s.fetch = func(ctx context.Context, lendingType string, start, end int64, page, size int) ([]model.Record, int, error) {
		rows, err := client.LendingPurchases(ctx, lendingType, start, end, page, size)
		if err != nil {
			return nil, 0, err
		}
		records := make([]model.Record, 0, len(rows))
		for _, row := range rows {
			if row.Status != purchaseStatusSuccess {
				continue
			}
			p := &amountParser{}
			rec := model.LendingPurchase{
				PurchaseID:   row.PurchaseID,
				LendingType:  lendingType,
				PurchaseTime: row.CreateTime,
				Asset:        row.Asset,
				Amount:       p.parse(row.Amount),
			}
			if p.err != nil {
				return nil, 0, p.err
			}
			records = append(records, rec)
		}
		return records, len(rows), nil
	}
	return s
}

// NewLendingRedemptions syncs lending product redemptions. Only PAID rows
// are kept; the endpoint reports no id, so identity is composite.
func NewLendingRedemptions(client *api.Client, cfg Config) engine.Source {
	s := &lendingSource{client: client, cfg: cfg, element: model.LendingRedemptions, pageSize: cfg.PageSize}
	s.fetch = func(ctx context.Context, lendingType string, start, end int64, page, size int) ([]model.Record, int, error) {
		rows, err := client.LendingRedemptions(ctx, lendingType, start, end, page, size)
		if err != nil {
			return nil, 0, err
		}
		records := make([]model.Record, 0, len(rows))
		for _, row := range rows {
			if row.Status != redemptionStatusPaid {
				continue
			}
			p := &amountParser{}
			rec := model.LendingRedemption{
				LendingType:    lendingType,
				RedemptionTime: row.CreateTime,
				Asset:          row.Asset,
				Amount:         p.parse(row.Amount),
			}
			if p.err != nil {
				return nil, 0, p.err
			}
			records = append(records, rec)
		}
		return records, len(rows), nil
	}
	return s
}

// NewLendingInterests syncs lending interest payments.
func NewLendingInterests(client *api.Client, cfg Config) engine.Source {
	s := &lendingSource{client: client, cfg: cfg, element: model.LendingInterests, pageSize: cfg.PageSize}
	s.fetch = func(ctx context.Context, lendingType string, start, end int64, page, size int) ([]model.Record, int, error) {
		rows, err := client.LendingInterests(ctx, lendingType, start, end, page, size)
		if err != nil {
			return nil, 0, err
		}
		records := make([]model.Record, 0, len(rows))
		for _, row := range rows {
			p := &amountParser{}
			rec := model.LendingInterest{
				LendingType:  lendingType,
				InterestTime: row.Time,
				Asset:        row.Asset,
				Amount:       p.parse(row.Interest),
			}
			if p.err != nil {
				return nil, 0, p.err
			}
			records = append(records, rec)
		}
		return records, len(rows), nil
	}
	return s
}
