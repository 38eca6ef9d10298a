package api

// ExchangeInfo from GET /api/v3/exchangeInfo.
type ExchangeInfo struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo is one listed trading pair.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"` // TRADING, BREAK, ...
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// AccountTrade from GET /api/v3/myTrades and GET /sapi/v1/margin/myTrades.
type AccountTrade struct {
	ID              int64  `json:"id"`
	Symbol          string `json:"symbol"`
	OrderID         int64  `json:"orderId"`
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
	Time            int64  `json:"time"`
	IsBuyer         bool   `json:"isBuyer"`
	IsMaker         bool   `json:"isMaker"`
}

// DepositRecord from GET /sapi/v1/capital/deposit/hisrec.
type DepositRecord struct {
	Amount     string `json:"amount"`
	Coin       string `json:"coin"`
	Network    string `json:"network"`
	Status     int    `json:"status"` // 0 pending, 1 success, 6 credited but cannot withdraw
	Address    string `json:"address"`
	TxID       string `json:"txId"`
	InsertTime int64  `json:"insertTime"`
}

// WithdrawRecord from GET /sapi/v1/capital/withdraw/history.
type WithdrawRecord struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	TransactionFee string `json:"transactionFee"`
	Coin           string `json:"coin"`
	Status         int    `json:"status"` // 6 = completed
	Address        string `json:"address"`
	TxID           string `json:"txId"`
	ApplyTime      string `json:"applyTime"` // "2021-04-29 16:08:00", UTC
	Network        string `json:"network"`
}

// DustLog from GET /sapi/v1/asset/dribblet.
type DustLog struct {
	Total              int             `json:"total"`
	UserAssetDribblets []AssetDribblet `json:"userAssetDribblets"`
}

// AssetDribblet is one dust conversion operation covering several assets.
type AssetDribblet struct {
	OperateTime              int64                 `json:"operateTime"`
	TotalTransferedAmount    string                `json:"totalTransferedAmount"`
	TotalServiceChargeAmount string                `json:"totalServiceChargeAmount"`
	TransID                  int64                 `json:"transId"`
	UserAssetDribbletDetails []AssetDribbletDetail `json:"userAssetDribbletDetails"`
}

// AssetDribbletDetail is a single converted asset within a dust operation.
type AssetDribbletDetail struct {
	TransID             int64  `json:"transId"`
	ServiceChargeAmount string `json:"serviceChargeAmount"`
	Amount              string `json:"amount"`
	OperateTime         int64  `json:"operateTime"`
	TransferedAmount    string `json:"transferedAmount"`
	FromAsset           string `json:"fromAsset"`
}

// DividendList from GET /sapi/v1/asset/assetDividend.
type DividendList struct {
	Rows  []DividendRecord `json:"rows"`
	Total int              `json:"total"`
}

// DividendRecord is one asset distribution.
type DividendRecord struct {
	Amount  string `json:"amount"`
	Asset   string `json:"asset"`
	DivTime int64  `json:"divTime"`
	EnInfo  string `json:"enInfo"`
	TranID  int64  `json:"tranId"`
}

// TransferList from GET /sapi/v1/asset/transfer.
type TransferList struct {
	Total int              `json:"total"`
	Rows  []TransferRecord `json:"rows"`
}

// TransferRecord is one universal transfer between account types.
type TransferRecord struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Type      string `json:"type"` // MAIN_MARGIN, MARGIN_MAIN, ...
	Status    string `json:"status"`
	TranID    int64  `json:"tranId"`
	Timestamp int64  `json:"timestamp"`
}

// MarginPair from GET /sapi/v1/margin/allPairs.
type MarginPair struct {
	Symbol string `json:"symbol"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// MarginLoanList from GET /sapi/v1/margin/loan.
type MarginLoanList struct {
	Rows  []MarginLoanRecord `json:"rows"`
	Total int                `json:"total"`
}

// MarginLoanRecord is one cross-margin borrow.
type MarginLoanRecord struct {
	Asset     string `json:"asset"`
	Principal string `json:"principal"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"` // PENDING, CONFIRMED, FAILED
	TxID      int64  `json:"txId"`
}

// MarginRepayList from GET /sapi/v1/margin/repay.
type MarginRepayList struct {
	Rows  []MarginRepayRecord `json:"rows"`
	Total int                 `json:"total"`
}

// MarginRepayRecord is one cross-margin repayment.
type MarginRepayRecord struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Interest  string `json:"interest"`
	Principal string `json:"principal"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	TxID      int64  `json:"txId"`
}

// MarginInterestList from GET /sapi/v1/margin/interestHistory.
type MarginInterestList struct {
	Rows  []MarginInterestRecord `json:"rows"`
	Total int                    `json:"total"`
}

// MarginInterestRecord is one accrued interest charge.
type MarginInterestRecord struct {
	Asset               string `json:"asset"`
	Interest            string `json:"interest"`
	InterestAccuredTime int64  `json:"interestAccuredTime"`
	InterestRate        string `json:"interestRate"`
	Principal           string `json:"principal"`
	Type                string `json:"type"` // ON_BORROW, PERIODIC, ...
}

// LendingPurchaseRecord from GET /sapi/v1/lending/union/purchaseRecord.
type LendingPurchaseRecord struct {
	Amount      string `json:"amount"`
	Asset       string `json:"asset"`
	CreateTime  int64  `json:"createTime"`
	LendingType string `json:"lendingType"`
	PurchaseID  int64  `json:"purchaseId"`
	Status      string `json:"status"` // SUCCESS
}

// LendingRedemptionRecord from GET /sapi/v1/lending/union/redemptionRecord.
type LendingRedemptionRecord struct {
	Amount     string `json:"amount"`
	Asset      string `json:"asset"`
	CreateTime int64  `json:"createTime"`
	Principal  string `json:"principal"`
	Status     string `json:"status"` // PAID
}

// LendingInterestRecord from GET /sapi/v1/lending/union/interestHistory.
type LendingInterestRecord struct {
	Asset       string `json:"asset"`
	Interest    string `json:"interest"`
	LendingType string `json:"lendingType"`
	Time        int64  `json:"time"`
}
