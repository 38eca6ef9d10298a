package model

import (
	"fmt"
	"strconv"
)

// ElementType identifies one kind of tracked account history.
type ElementType string

const (
	SpotTrades           ElementType = "spot_trades"
	SpotDeposits         ElementType = "spot_deposits"
	SpotWithdraws        ElementType = "spot_withdraws"
	SpotDusts            ElementType = "spot_dusts"
	SpotDividends        ElementType = "spot_dividends"
	UniversalTransfers   ElementType = "universal_transfers"
	LendingPurchases     ElementType = "lending_purchases"
	LendingRedemptions   ElementType = "lending_redemptions"
	LendingInterests     ElementType = "lending_interests"
	CrossMarginTrades    ElementType = "cross_margin_trades"
	CrossMarginLoans     ElementType = "cross_margin_loans"
	CrossMarginRepays    ElementType = "cross_margin_repays"
	CrossMarginInterests ElementType = "cross_margin_interests"
)

// Group is an account-type grouping of element types.
type Group string

const (
	GroupSpot        Group = "spot"
	GroupCrossMargin Group = "cross_margin"
	GroupLending     Group = "lending"
)

// Record is one historical account event.
type Record interface {
	// Element returns the element type the record belongs to.
	Element() ElementType

	// Identity returns the locally computed unique key used for dedup.
	Identity() string

	// Time returns the event timestamp in milliseconds since epoch.
	Time() int64

	// Partition returns the partition key the record was fetched under
	// (symbol, asset, enum value), or "" for account-wide elements.
	Partition() string
}

// Trade markets.
const (
	TradeSpot        = "spot"
	TradeCrossMargin = "cross_margin"
)

// Trade is an executed spot or cross-margin trade.
type Trade struct {
	TradeType string // TradeSpot or TradeCrossMargin
	TradeID   int64  // Binance trade id, unique per symbol
	Symbol    string
	TradeTime int64
	Qty       float64
	Price     float64
	Fee       float64
	FeeAsset  string
	IsBuyer   bool
}

func (t Trade) Element() ElementType {
	if t.TradeType == TradeCrossMargin {
		return CrossMarginTrades
	}
	return SpotTrades
}

func (t Trade) Identity() string {
	return t.TradeType + ":" + t.Symbol + ":" + strconv.FormatInt(t.TradeID, 10)
}

func (t Trade) Time() int64       { return t.TradeTime }
func (t Trade) Partition() string { return t.Symbol }

// Deposit is a crypto deposit credited to the spot account.
type Deposit struct {
	TxID       string // on-chain transaction id
	Asset      string
	InsertTime int64
	Amount     float64
}

func (d Deposit) Element() ElementType { return SpotDeposits }
func (d Deposit) Identity() string     { return d.TxID }
func (d Deposit) Time() int64          { return d.InsertTime }
func (d Deposit) Partition() string    { return "" }

// Withdraw is a crypto withdrawal from the spot account.
type Withdraw struct {
	WithdrawID string // Binance withdraw id
	TxID       string
	ApplyTime  int64
	Asset      string
	Amount     float64
	Fee        float64
}

func (w Withdraw) Element() ElementType { return SpotWithdraws }
func (w Withdraw) Identity() string     { return w.WithdrawID }
func (w Withdraw) Time() int64          { return w.ApplyTime }
func (w Withdraw) Partition() string    { return "" }

// DustConversion is a small-balance conversion to BNB. One transfer id covers
// several assets converted together, so the identity includes the asset.
type DustConversion struct {
	TranID      int64
	FromAsset   string
	DustTime    int64
	AssetAmount float64
	BNBAmount   float64
	BNBFee      float64
}

func (d DustConversion) Element() ElementType { return SpotDusts }
func (d DustConversion) Identity() string {
	return strconv.FormatInt(d.TranID, 10) + ":" + d.FromAsset
}
func (d DustConversion) Time() int64       { return d.DustTime }
func (d DustConversion) Partition() string { return "" }

// Dividend is an asset distribution credited by Binance.
type Dividend struct {
	TranID  int64
	DivTime int64
	Asset   string
	Amount  float64
}

func (d Dividend) Element() ElementType { return SpotDividends }
func (d Dividend) Identity() string     { return strconv.FormatInt(d.TranID, 10) }
func (d Dividend) Time() int64          { return d.DivTime }
func (d Dividend) Partition() string    { return "" }

// UniversalTransfer is a transfer between Binance account types
// (e.g. MAIN_MARGIN). Partitioned by the transfer type enum.
type UniversalTransfer struct {
	TranID       int64
	TransferType string
	TransferTime int64
	Asset        string
	Amount       float64
}

func (u UniversalTransfer) Element() ElementType { return UniversalTransfers }
func (u UniversalTransfer) Identity() string     { return strconv.FormatInt(u.TranID, 10) }
func (u UniversalTransfer) Time() int64          { return u.TransferTime }
func (u UniversalTransfer) Partition() string    { return u.TransferType }

// LendingPurchase is a subscription to a lending product.
type LendingPurchase struct {
	PurchaseID   int64
	LendingType  string // DAILY, ACTIVITY or CUSTOMIZED_FIXED
	PurchaseTime int64
	Asset        string
	Amount       float64
}

func (l LendingPurchase) Element() ElementType { return LendingPurchases }
func (l LendingPurchase) Identity() string     { return strconv.FormatInt(l.PurchaseID, 10) }
func (l LendingPurchase) Time() int64          { return l.PurchaseTime }
func (l LendingPurchase) Partition() string    { return l.LendingType }

// LendingRedemption is a redemption from a lending product. The endpoint
// exposes no natural id, so the identity is a composite.
type LendingRedemption struct {
	LendingType    string
	RedemptionTime int64
	Asset          string
	Amount         float64
}

func (l LendingRedemption) Element() ElementType { return LendingRedemptions }
func (l LendingRedemption) Identity() string {
	return compositeIdentity(l.RedemptionTime, l.LendingType, l.Asset, l.Amount)
}
func (l LendingRedemption) Time() int64       { return l.RedemptionTime }
func (l LendingRedemption) Partition() string { return l.LendingType }

// LendingInterest is an interest payment from a lending product.
type LendingInterest struct {
	LendingType  string
	InterestTime int64
	Asset        string
	Amount       float64
}

func (l LendingInterest) Element() ElementType { return LendingInterests }
func (l LendingInterest) Identity() string {
	return compositeIdentity(l.InterestTime, l.LendingType, l.Asset, l.Amount)
}
func (l LendingInterest) Time() int64       { return l.InterestTime }
func (l LendingInterest) Partition() string { return l.LendingType }

// MarginLoan is a confirmed cross-margin borrow.
type MarginLoan struct {
	TxID      int64
	Asset     string
	LoanTime  int64
	Principal float64
}

func (m MarginLoan) Element() ElementType { return CrossMarginLoans }
func (m MarginLoan) Identity() string     { return strconv.FormatInt(m.TxID, 10) }
func (m MarginLoan) Time() int64          { return m.LoanTime }
func (m MarginLoan) Partition() string    { return m.Asset }

// MarginRepay is a confirmed cross-margin repayment.
type MarginRepay struct {
	TxID      int64
	Asset     string
	RepayTime int64
	Principal float64
	Interest  float64
}

func (m MarginRepay) Element() ElementType { return CrossMarginRepays }
func (m MarginRepay) Identity() string     { return strconv.FormatInt(m.TxID, 10) }
func (m MarginRepay) Time() int64          { return m.RepayTime }
func (m MarginRepay) Partition() string    { return m.Asset }

// MarginInterestPartition is the fixed partition key for cross-margin
// interests, which are queried account-wide.
const MarginInterestPartition = "cross"

// MarginInterest is an accrued cross-margin interest charge. No natural id,
// composite identity.
type MarginInterest struct {
	Asset        string
	InterestTime int64
	Interest     float64
	InterestType string // ON_BORROW, PERIODIC, ...
}

func (m MarginInterest) Element() ElementType { return CrossMarginInterests }
func (m MarginInterest) Identity() string {
	return compositeIdentity(m.InterestTime, m.InterestType, m.Asset, m.Interest)
}
func (m MarginInterest) Time() int64       { return m.InterestTime }
func (m MarginInterest) Partition() string { return MarginInterestPartition }

// compositeIdentity builds a stable key for records without a natural id.
func compositeIdentity(ts int64, kind, asset string, amount float64) string {
	return fmt.Sprintf("%d:%s:%s:%s", ts, kind, asset, strconv.FormatFloat(amount, 'f', -1, 64))
}
