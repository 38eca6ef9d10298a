package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mverret/binance-ledger/internal/model"
)

// schemaDDL uses type names both sqlite and Postgres accept.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		identity   TEXT PRIMARY KEY,
		trade_type TEXT NOT NULL,
		trade_id   BIGINT NOT NULL,
		symbol     TEXT NOT NULL,
		trade_time BIGINT NOT NULL,
		qty        DOUBLE PRECISION NOT NULL,
		price      DOUBLE PRECISION NOT NULL,
		fee        DOUBLE PRECISION NOT NULL,
		fee_asset  TEXT NOT NULL,
		is_buyer   BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades (trade_type, symbol, trade_time)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		identity    TEXT PRIMARY KEY,
		tx_id       TEXT NOT NULL,
		asset       TEXT NOT NULL,
		insert_time BIGINT NOT NULL,
		amount      DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_time ON deposits (insert_time)`,
	`CREATE TABLE IF NOT EXISTS withdraws (
		identity    TEXT PRIMARY KEY,
		withdraw_id TEXT NOT NULL,
		tx_id       TEXT NOT NULL,
		apply_time  BIGINT NOT NULL,
		asset       TEXT NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		fee         DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdraws_time ON withdraws (apply_time)`,
	`CREATE TABLE IF NOT EXISTS dust_conversions (
		identity     TEXT PRIMARY KEY,
		tran_id      BIGINT NOT NULL,
		from_asset   TEXT NOT NULL,
		dust_time    BIGINT NOT NULL,
		asset_amount DOUBLE PRECISION NOT NULL,
		bnb_amount   DOUBLE PRECISION NOT NULL,
		bnb_fee      DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dust_time ON dust_conversions (dust_time)`,
	`CREATE TABLE IF NOT EXISTS dividends (
		identity TEXT PRIMARY KEY,
		tran_id  BIGINT NOT NULL,
		div_time BIGINT NOT NULL,
		asset    TEXT NOT NULL,
		amount   DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dividends_time ON dividends (div_time)`,
	`CREATE TABLE IF NOT EXISTS universal_transfers (
		identity      TEXT PRIMARY KEY,
		tran_id       BIGINT NOT NULL,
		transfer_type TEXT NOT NULL,
		transfer_time BIGINT NOT NULL,
		asset         TEXT NOT NULL,
		amount        DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_type_time ON universal_transfers (transfer_type, transfer_time)`,
	`CREATE TABLE IF NOT EXISTS lending_purchases (
		identity      TEXT PRIMARY KEY,
		purchase_id   BIGINT NOT NULL,
		lending_type  TEXT NOT NULL,
		purchase_time BIGINT NOT NULL,
		asset         TEXT NOT NULL,
		amount        DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lending_redemptions (
		identity        TEXT PRIMARY KEY,
		lending_type    TEXT NOT NULL,
		redemption_time BIGINT NOT NULL,
		asset           TEXT NOT NULL,
		amount          DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lending_interests (
		identity      TEXT PRIMARY KEY,
		lending_type  TEXT NOT NULL,
		interest_time BIGINT NOT NULL,
		asset         TEXT NOT NULL,
		amount        DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS margin_loans (
		identity  TEXT PRIMARY KEY,
		tx_id     BIGINT NOT NULL,
		asset     TEXT NOT NULL,
		loan_time BIGINT NOT NULL,
		principal DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_margin_loans_asset_time ON margin_loans (asset, loan_time)`,
	`CREATE TABLE IF NOT EXISTS margin_repays (
		identity   TEXT PRIMARY KEY,
		tx_id      BIGINT NOT NULL,
		asset      TEXT NOT NULL,
		repay_time BIGINT NOT NULL,
		principal  DOUBLE PRECISION NOT NULL,
		interest   DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_margin_repays_asset_time ON margin_repays (asset, repay_time)`,
	`CREATE TABLE IF NOT EXISTS margin_interests (
		identity      TEXT PRIMARY KEY,
		asset         TEXT NOT NULL,
		interest_time BIGINT NOT NULL,
		interest      DOUBLE PRECISION NOT NULL,
		interest_type TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_margin_interests_time ON margin_interests (interest_time)`,
	`CREATE TABLE IF NOT EXISTS sync_watermarks (
		element_type  TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		watermark     BIGINT NOT NULL,
		updated_at    BIGINT NOT NULL,
		PRIMARY KEY (element_type, partition_key)
	)`,
}

// tableSpec maps an element type onto its table and query columns.
type tableSpec struct {
	table        string
	timeCol      string
	partitionCol string // "" for account-wide elements
	typeCol      string // extra fixed filter column (trades), "" otherwise
	typeVal      string
	cols         []string // insert/select column list, identity first
}

var tableSpecs = map[model.ElementType]tableSpec{
	model.SpotTrades: {
		table: "trades", timeCol: "trade_time", partitionCol: "symbol",
		typeCol: "trade_type", typeVal: model.TradeSpot,
		cols: []string{"identity", "trade_type", "trade_id", "symbol", "trade_time", "qty", "price", "fee", "fee_asset", "is_buyer"},
	},
	model.CrossMarginTrades: {
		table: "trades", timeCol: "trade_time", partitionCol: "symbol",
		typeCol: "trade_type", typeVal: model.TradeCrossMargin,
		cols: []string{"identity", "trade_type", "trade_id", "symbol", "trade_time", "qty", "price", "fee", "fee_asset", "is_buyer"},
	},
	model.SpotDeposits: {
		table: "deposits", timeCol: "insert_time",
		cols: []string{"identity", "tx_id", "asset", "insert_time", "amount"},
	},
	model.SpotWithdraws: {
		table: "withdraws", timeCol: "apply_time",
		cols: []string{"identity", "withdraw_id", "tx_id", "apply_time", "asset", "amount", "fee"},
	},
	model.SpotDusts: {
		table: "dust_conversions", timeCol: "dust_time",
		cols: []string{"identity", "tran_id", "from_asset", "dust_time", "asset_amount", "bnb_amount", "bnb_fee"},
	},
	model.SpotDividends: {
		table: "dividends", timeCol: "div_time",
		cols: []string{"identity", "tran_id", "div_time", "asset", "amount"},
	},
	model.UniversalTransfers: {
		table: "universal_transfers", timeCol: "transfer_time", partitionCol: "transfer_type",
		cols: []string{"identity", "tran_id", "transfer_type", "transfer_time", "asset", "amount"},
	},
	model.LendingPurchases: {
		table: "lending_purchases", timeCol: "purchase_time", partitionCol: "lending_type",
		cols: []string{"identity", "purchase_id", "lending_type", "purchase_time", "asset", "amount"},
	},
	model.LendingRedemptions: {
		table: "lending_redemptions", timeCol: "redemption_time", partitionCol: "lending_type",
		cols: []string{"identity", "lending_type", "redemption_time", "asset", "amount"},
	},
	model.LendingInterests: {
		table: "lending_interests", timeCol: "interest_time", partitionCol: "lending_type",
		cols: []string{"identity", "lending_type", "interest_time", "asset", "amount"},
	},
	model.CrossMarginLoans: {
		table: "margin_loans", timeCol: "loan_time", partitionCol: "asset",
		cols: []string{"identity", "tx_id", "asset", "loan_time", "principal"},
	},
	model.CrossMarginRepays: {
		table: "margin_repays", timeCol: "repay_time", partitionCol: "asset",
		cols: []string{"identity", "tx_id", "asset", "repay_time", "principal", "interest"},
	},
	model.CrossMarginInterests: {
		table: "margin_interests", timeCol: "interest_time",
		cols: []string{"identity", "asset", "interest_time", "interest", "interest_type"},
	},
}

func specFor(element model.ElementType) (tableSpec, error) {
	spec, ok := tableSpecs[element]
	if !ok {
		return tableSpec{}, fmt.Errorf("unknown element type %q", element)
	}
	return spec, nil
}

// insertValues returns the column values of a record in tableSpec.cols order.
func insertValues(rec model.Record) ([]any, error) {
	switch r := rec.(type) {
	case model.Trade:
		return []any{r.Identity(), r.TradeType, r.TradeID, r.Symbol, r.TradeTime, r.Qty, r.Price, r.Fee, r.FeeAsset, r.IsBuyer}, nil
	case model.Deposit:
		return []any{r.Identity(), r.TxID, r.Asset, r.InsertTime, r.Amount}, nil
	case model.Withdraw:
		return []any{r.Identity(), r.WithdrawID, r.TxID, r.ApplyTime, r.Asset, r.Amount, r.Fee}, nil
	case model.DustConversion:
		return []any{r.Identity(), r.TranID, r.FromAsset, r.DustTime, r.AssetAmount, r.BNBAmount, r.BNBFee}, nil
	case model.Dividend:
		return []any{r.Identity(), r.TranID, r.DivTime, r.Asset, r.Amount}, nil
	case model.UniversalTransfer:
		return []any{r.Identity(), r.TranID, r.TransferType, r.TransferTime, r.Asset, r.Amount}, nil
	case model.LendingPurchase:
		return []any{r.Identity(), r.PurchaseID, r.LendingType, r.PurchaseTime, r.Asset, r.Amount}, nil
	case model.LendingRedemption:
		return []any{r.Identity(), r.LendingType, r.RedemptionTime, r.Asset, r.Amount}, nil
	case model.LendingInterest:
		return []any{r.Identity(), r.LendingType, r.InterestTime, r.Asset, r.Amount}, nil
	case model.MarginLoan:
		return []any{r.Identity(), r.TxID, r.Asset, r.LoanTime, r.Principal}, nil
	case model.MarginRepay:
		return []any{r.Identity(), r.TxID, r.Asset, r.RepayTime, r.Principal, r.Interest}, nil
	case model.MarginInterest:
		return []any{r.Identity(), r.Asset, r.InterestTime, r.Interest, r.InterestType}, nil
	default:
		return nil, fmt.Errorf("unsupported record type %T", rec)
	}
}

// scanRecord reads one row (in tableSpec.cols order, identity skipped) into
// the concrete record type for the element.
func scanRecord(element model.ElementType, scan func(dest ...any) error) (model.Record, error) {
	var identity string
	switch element {
	case model.SpotTrades, model.CrossMarginTrades:
		var r model.Trade
		if err := scan(&identity, &r.TradeType, &r.TradeID, &r.Symbol, &r.TradeTime, &r.Qty, &r.Price, &r.Fee, &r.FeeAsset, &r.IsBuyer); err != nil {
			return nil, err
		}
		return r, nil
	case model.SpotDeposits:
		var r model.Deposit
		if err := scan(&identity, &r.TxID, &r.Asset, &r.InsertTime, &r.Amount); err != nil {
			return nil, err
		}
		return r, nil
	case model.SpotWithdraws:
		var r model.Withdraw
		if err := scan(&identity, &r.WithdrawID, &r.TxID, &r.ApplyTime, &r.Asset, &r.Amount, &r.Fee); err != nil {
			return nil, err
		}
		return r, nil
	case model.SpotDusts:
		var r model.DustConversion
		if err := scan(&identity, &r.TranID, &r.FromAsset, &r.DustTime, &r.AssetAmount, &r.BNBAmount, &r.BNBFee); err != nil {
			return nil, err
		}
		return r, nil
	case model.SpotDividends:
		var r model.Dividend
		if err := scan(&identity, &r.TranID, &r.DivTime, &r.Asset, &r.Amount); err != nil {
			return nil, err
		}
		return r, nil
	case model.UniversalTransfers:
		var r model.UniversalTransfer
		if err := scan(&identity, &r.TranID, &r.TransferType, &r.TransferTime, &r.Asset, &r.Amount); err != nil {
			return nil, err
		}
		return r, nil
	case model.LendingPurchases:
		var r model.LendingPurchase
		if err := scan(&identity, &r.PurchaseID, &r.LendingType, &r.PurchaseTime, &r.Asset, &r.Amount); err != nil {
			return nil, err
		}
		return r, nil
	case model.LendingRedemptions:
		var r model.LendingRedemption
		if err := scan(&identity, &r.LendingType, &r.RedemptionTime, &r.Asset, &r.Amount); err != nil {
			return nil, err
		}
		return r, nil
	case model.LendingInterests:
		var r model.LendingInterest
		if err := scan(&identity, &r.LendingType, &r.InterestTime, &r.Asset, &r.Amount); err != nil {
			return nil, err
		}
		return r, nil
	case model.CrossMarginLoans:
		var r model.MarginLoan
		if err := scan(&identity, &r.TxID, &r.Asset, &r.LoanTime, &r.Principal); err != nil {
			return nil, err
		}
		return r, nil
	case model.CrossMarginRepays:
		var r model.MarginRepay
		if err := scan(&identity, &r.TxID, &r.Asset, &r.RepayTime, &r.Principal, &r.Interest); err != nil {
			return nil, err
		}
		return r, nil
	case model.CrossMarginInterests:
		var r model.MarginInterest
		if err := scan(&identity, &r.Asset, &r.InterestTime, &r.Interest, &r.InterestType); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown element type %q", element)
	}
}

// insertSQL builds the ON CONFLICT DO NOTHING insert for a spec, with ?
// placeholders.
func insertSQL(spec tableSpec) string {
	marks := strings.Repeat("?, ", len(spec.cols))
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (identity) DO NOTHING",
		spec.table,
		strings.Join(spec.cols, ", "),
		strings.TrimSuffix(marks, ", "),
	)
}

// querySQL builds the range query for a spec, with ? placeholders, returning
// the statement and its arguments.
func querySQL(spec tableSpec, partition string, start, end int64) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if spec.typeCol != "" {
		conds = append(conds, spec.typeCol+" = ?")
		args = append(args, spec.typeVal)
	}
	if partition != "" && spec.partitionCol != "" {
		conds = append(conds, spec.partitionCol+" = ?")
		args = append(args, partition)
	}
	if start > 0 {
		conds = append(conds, spec.timeCol+" >= ?")
		args = append(args, start)
	}
	if end > 0 {
		conds = append(conds, spec.timeCol+" <= ?")
		args = append(args, end)
	}

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(spec.cols, ", "), spec.table)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY %s ASC, identity ASC", spec.timeCol)
	return q, args
}

// rebind converts ? placeholders to $1..$n for Postgres.
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

const (
	getWatermarkSQL = `SELECT watermark FROM sync_watermarks WHERE element_type = ? AND partition_key = ?`
	setWatermarkSQL = `INSERT INTO sync_watermarks (element_type, partition_key, watermark, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (element_type, partition_key)
		DO UPDATE SET watermark = excluded.watermark, updated_at = excluded.updated_at`
)

func hasIdentitySQL(spec tableSpec) string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE identity = ?", spec.table)
}
