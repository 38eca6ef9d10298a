package source

import (
	"context"
	"strconv"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/engine"
	"github.com/mverret/binance-ledger/internal/model"
)

// TradeSource syncs executed trades for one market (spot or cross margin).
// Trades paginate by fromId inside a single window: the first page is
// selected by time range, later pages by id cursor.
type TradeSource struct {
	client   *api.Client
	universe Universe
	market   string
	pageSize int
}

func NewSpotTrades(client *api.Client, universe Universe, cfg Config) *TradeSource {
	return &TradeSource{client: client, universe: universe, market: model.TradeSpot, pageSize: cfg.TradePageSize}
}

func NewMarginTrades(client *api.Client, universe Universe, cfg Config) *TradeSource {
	return &TradeSource{client: client, universe: universe, market: model.TradeCrossMargin, pageSize: cfg.TradePageSize}
}

func (s *TradeSource) Element() model.ElementType {
	if s.market == model.TradeCrossMargin {
		return model.CrossMarginTrades
	}
	return model.SpotTrades
}

func (s *TradeSource) Partitions(ctx context.Context) ([]string, error) {
	if s.market == model.TradeCrossMargin {
		return s.universe.MarginSymbols(ctx)
	}
	return s.universe.SpotSymbols(ctx)
}

func (s *TradeSource) Window() engine.Window {
	return engine.Window{MaxSpan: 0, PageSize: s.pageSize}
}

func (s *TradeSource) FetchPage(ctx context.Context, symbol string, start, end int64, cursor string) ([]model.Record, string, error) {
	opts := api.TradesOptions{Symbol: symbol, FromID: -1, Limit: s.pageSize}
	if cursor == "" {
		opts.StartTime, opts.EndTime = start, end
	} else {
		fromID, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", err
		}
		opts.FromID = fromID
	}

	var (
		rows []api.AccountTrade
		err  error
	)
	if s.market == model.TradeCrossMargin {
		rows, err = s.client.MarginTrades(ctx, opts)
	} else {
		rows, err = s.client.MyTrades(ctx, opts)
	}
	if err != nil {
		return nil, "", err
	}

	records := make([]model.Record, 0, len(rows))
	pastEnd := false
	var lastID int64
	for _, row := range rows {
		// fromId pagination ignores the time range; stop at the window end.
		if row.Time > end {
			pastEnd = true
			continue
		}
		p := &amountParser{}
		rec := model.Trade{
			TradeType: s.market,
			TradeID:   row.ID,
			Symbol:    row.Symbol,
			TradeTime: row.Time,
			Qty:       p.parse(row.Qty),
			Price:     p.parse(row.Price),
			Fee:       p.parse(row.Commission),
			FeeAsset:  row.CommissionAsset,
			IsBuyer:   row.IsBuyer,
		}
		if p.err != nil {
			return nil, "", p.err
		}
		records = append(records, rec)
		if row.ID > lastID {
			lastID = row.ID
		}
	}

	if pastEnd || len(rows) < s.pageSize {
		return records, "", nil
	}
	return records, strconv.FormatInt(lastID+1, 10), nil
}

// DepositSource syncs successful crypto deposits, account-wide.
type DepositSource struct {
	client *api.Client
	cfg    Config
}

func NewDeposits(client *api.Client, cfg Config) *DepositSource {
	return &DepositSource{client: client, cfg: cfg}
}

func (s *DepositSource) Element() model.ElementType { return model.SpotDeposits }

func (s *DepositSource) Partitions(context.Context) ([]string, error) {
	return []string{""}, nil
}

func (s *DepositSource) Window() engine.Window {
	return engine.Window{MaxSpan: s.cfg.window()}
}

func (s *DepositSource) FetchPage(ctx context.Context, _ string, start, end int64, _ string) ([]model.Record, string, error) {
	rows, err := s.client.DepositHistory(ctx, start, end, depositStatusSuccess)
	if err != nil {
		return nil, "", err
	}

	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		if row.Status != depositStatusSuccess {
			continue
		}
		p := &amountParser{}
		rec := model.Deposit{
			TxID:       row.TxID,
			Asset:      row.Coin,
			InsertTime: row.InsertTime,
			Amount:     p.parse(row.Amount),
		}
		if p.err != nil {
			return nil, "", p.err
		}
		records = append(records, rec)
	}
	return records, "", nil
}

// WithdrawSource syncs completed crypto withdrawals, account-wide.
type WithdrawSource struct {
	client *api.Client
	cfg    Config
}

func NewWithdraws(client *api.Client, cfg Config) *WithdrawSource {
	return &WithdrawSource{client: client, cfg: cfg}
}

func (s *WithdrawSource) Element() model.ElementType { return model.SpotWithdraws }

func (s *WithdrawSource) Partitions(context.Context) ([]string, error) {
	return []string{""}, nil
}

func (s *WithdrawSource) Window() engine.Window {
	return engine.Window{MaxSpan: s.cfg.window()}
}

func (s *WithdrawSource) FetchPage(ctx context.Context, _ string, start, end int64, _ string) ([]model.Record, string, error) {
	rows, err := s.client.WithdrawHistory(ctx, start, end, withdrawStatusCompleted)
	if err != nil {
		return nil, "", err
	}

	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		if row.Status != withdrawStatusCompleted {
			continue
		}
		applyTime, err := parseApplyTime(row.ApplyTime)
		if err != nil {
			return nil, "", err
		}
		p := &amountParser{}
		rec := model.Withdraw{
			WithdrawID: row.ID,
			TxID:       row.TxID,
			ApplyTime:  applyTime,
			Asset:      row.Coin,
			Amount:     p.parse(row.Amount),
			Fee:        p.parse(row.TransactionFee),
		}
		if p.err != nil {
			return nil, "", p.err
		}
		records = append(records, rec)
	}
	return records, "", nil
}

// DustSource syncs small-balance BNB conversions, account-wide. One dribblet
// operation fans out to one record per converted asset.
type DustSource struct {
	client *api.Client
	cfg    Config
}

func NewDusts(client *api.Client, cfg Config) *DustSource {
	return &DustSource{client: client, cfg: cfg}
}

func (s *DustSource) Element() model.ElementType { return model.SpotDusts }

func (s *DustSource) Partitions(context.Context) ([]string, error) {
	return []string{""}, nil
}

func (s *DustSource) Window() engine.Window {
	return engine.Window{MaxSpan: s.cfg.window()}
}

func (s *DustSource) FetchPage(ctx context.Context, _ string, start, end int64, _ string) ([]model.Record, string, error) {
	log, err := s.client.DustLog(ctx, start, end)
	if err != nil {
		return nil, "", err
	}

	var records []model.Record
	for _, op := range log.UserAssetDribblets {
		for _, detail := range op.UserAssetDribbletDetails {
			p := &amountParser{}
			rec := model.DustConversion{
				TranID:      detail.TransID,
				FromAsset:   detail.FromAsset,
				DustTime:    detail.OperateTime,
				AssetAmount: p.parse(detail.Amount),
				BNBAmount:   p.parse(detail.TransferedAmount),
				BNBFee:      p.parse(detail.ServiceChargeAmount),
			}
			if p.err != nil {
				return nil, "", p.err
			}
			records = append(records, rec)
		}
	}
	return records, "", nil
}

// DividendSource syncs asset dividends, account-wide. The endpoint returns
// at most 500 rows per request with no page parameter, so a full page
// restarts the query just past the newest row seen.
type DividendSource struct {
	client *api.Client
	cfg    Config
}

// dividendLimit is the endpoint's hard row cap.
const dividendLimit = 500

func NewDividends(client *api.Client, cfg Config) *DividendSource {
	return &DividendSource{client: client, cfg: cfg}
}

func (s *DividendSource) Element() model.ElementType { return model.SpotDividends }

func (s *DividendSource) Partitions(context.Context) ([]string, error) {
	return []string{""}, nil
}

func (s *DividendSource) Window() engine.Window {
	return engine.Window{MaxSpan: s.cfg.window(), PageSize: dividendLimit}
}

func (s *DividendSource) FetchPage(ctx context.Context, _ string, start, end int64, cursor string) ([]model.Record, string, error) {
	from := start
	if cursor != "" {
		var err error
		from, err = strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", err
		}
	}

	list, err := s.client.AssetDividends(ctx, from, end, dividendLimit)
	if err != nil {
		return nil, "", err
	}

	records := make([]model.Record, 0, len(list.Rows))
	var maxTime int64
	for _, row := range list.Rows {
		p := &amountParser{}
		rec := model.Dividend{
			TranID:  row.TranID,
			DivTime: row.DivTime,
			Asset:   row.Asset,
			Amount:  p.parse(row.Amount),
		}
		if p.err != nil {
			return nil, "", p.err
		}
		records = append(records, rec)
		if row.DivTime > maxTime {
			maxTime = row.DivTime
		}
	}

	if len(list.Rows) < dividendLimit {
		return records, "", nil
	}
	next := strconv.FormatInt(maxTime+1, 10)
	if next == cursor {
		// 500 dividends in one millisecond would loop forever.
		return records, "", nil
	}
	return records, next, nil
}
