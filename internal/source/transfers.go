package source

import (
	"context"
	"time"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/engine"
	"github.com/mverret/binance-ledger/internal/model"
)

// TransferTypes enumerates the universal transfer directions Binance
// tracks. Each is a separate partition because the endpoint requires the
// type parameter.
var TransferTypes = []string{
	"MAIN_UMFUTURE",
	"MAIN_CMFUTURE",
	"MAIN_MARGIN",
	"MAIN_MINING",
	"MAIN_FUNDING",
	"UMFUTURE_MAIN",
	"UMFUTURE_MARGIN",
	"UMFUTURE_FUNDING",
	"CMFUTURE_MAIN",
	"CMFUTURE_MARGIN",
	"CMFUTURE_FUNDING",
	"MARGIN_MAIN",
	"MARGIN_UMFUTURE",
	"MARGIN_CMFUTURE",
	"MARGIN_MINING",
	"MARGIN_FUNDING",
	"MINING_MAIN",
	"MINING_UMFUTURE",
	"MINING_MARGIN",
	"FUNDING_MAIN",
	"FUNDING_UMFUTURE",
	"FUNDING_CMFUTURE",
	"FUNDING_MARGIN",
}

// transferMaxWindow is the endpoint's range cap, tighter than the usual 90
// days.
const transferMaxWindow = 30 * 24 * time.Hour

// TransferSource syncs universal transfers, partitioned by transfer type.
type TransferSource struct {
	client   *api.Client
	pageSize int
}

func NewTransfers(client *api.Client, cfg Config) *TransferSource {
	return &TransferSource{client: client, pageSize: cfg.PageSize}
}

func (s *TransferSource) Element() model.ElementType { return model.UniversalTransfers }

func (s *TransferSource) Partitions(context.Context) ([]string, error) {
	return TransferTypes, nil
}

func (s *TransferSource) Window() engine.Window {
	return engine.Window{MaxSpan: transferMaxWindow, PageSize: s.pageSize}
}

func (s *TransferSource) FetchPage(ctx context.Context, transferType string, start, end int64, cursor string) ([]model.Record, string, error) {
	page, err := pageCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	list, err := s.client.UniversalTransfers(ctx, transferType, start, end, page, s.pageSize)
	if err != nil {
		return nil, "", err
	}

	records := make([]model.Record, 0, len(list.Rows))
	for _, row := range list.Rows {
		p := &amountParser{}
		rec := model.UniversalTransfer{
			TranID:       row.TranID,
			TransferType: transferType,
			TransferTime: row.Timestamp,
			Asset:        row.Asset,
			Amount:       p.parse(row.Amount),
		}
		if p.err != nil {
			return nil, "", p.err
		}
		records = append(records, rec)
	}
	return records, nextPageCursor(len(list.Rows), s.pageSize, page), nil
}
