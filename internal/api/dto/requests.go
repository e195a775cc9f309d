package dto

// CreateDepositRequest is the body for recording a bank deposit.
type CreateDepositRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description,omitempty"`
}

// CreateSettlementRequest is the body for recording a processor settlement.
type CreateSettlementRequest struct {
	SettlementDate   string `json:"settlement_date"` // YYYY-MM-DD
	NetAmount        string `json:"net_amount"`
	TransactionCount int    `json:"transaction_count"`
}

// ManualReconcileRequest is the body for a manual settlement link.
type ManualReconcileRequest struct {
	BankTransactionID string `json:"bank_transaction_id"`
	BankAmount        string `json:"bank_amount"`
}

// SaveRuleRequest is the body for creating or updating a rule.
type SaveRuleRequest struct {
	Name             string `json:"name"`
	Priority         int    `json:"priority"`
	Active           bool   `json:"active"`
	VendorID         string `json:"vendor_id,omitempty"`
	DescriptionMatch string `json:"description_match,omitempty"`
	AmountMin        string `json:"amount_min,omitempty"`
	AmountMax        string `json:"amount_max,omitempty"`
	TransactionType  string `json:"transaction_type,omitempty"`
	CategoryID       string `json:"category_id"`
	RequiresApproval bool   `json:"requires_approval"`
}

// SuggestRequest is the body for a rule suggestion run.
type SuggestRequest struct {
	IncludeConfirmed bool `json:"include_confirmed"`
}

// FeeQuoteRequest is the body for pricing a single transaction.
type FeeQuoteRequest struct {
	Amount      string `json:"amount"`
	PaymentType string `json:"payment_type"`
	EntryMethod string `json:"entry_method"`
}

// FeeBatchRequest is the body for pricing a batch.
type FeeBatchRequest struct {
	Transactions []FeeQuoteRequest `json:"transactions"`
}

// CreateVendorRequest is the body for creating a vendor.
type CreateVendorRequest struct {
	Name              string `json:"name"`
	DefaultCategoryID string `json:"default_category_id,omitempty"`
}

// AISuggestRequest is the body for an assistant categorization call.
type AISuggestRequest struct {
	Description string `json:"description"`
	Categories  []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
}
