package models

import "encoding/json"

// Monetary values are json.Number so both numeric and quoted decimal
// encodings decode without loss. Timestamps are kept as the server sends
// them.

// Account types and statuses used by the dev server.
const (
	AccountChecking     = "checking"
	AccountSavings      = "savings"
	AccountStatusActive = "active"
)

// Transaction types.
const (
	TxnDeposit    = "deposit"
	TxnWithdrawal = "withdrawal"
	TxnTransfer   = "transfer"
	TxnPayment    = "payment"
)

// Loan and application statuses.
const (
	LoanDraft       = "DRAFT"
	LoanSubmitted   = "SUBMITTED"
	LoanUnderReview = "UNDER_REVIEW"
	LoanApproved    = "APPROVED"
	LoanRejected    = "REJECTED"
	LoanActive      = "ACTIVE"
	LoanClosed      = "CLOSED"
)

type Account struct {
	ID            string      `json:"id"`
	AccountNumber string      `json:"accountNumber"`
	AccountType   string      `json:"accountType"`
	AccountName   string      `json:"accountName"`
	Balance       json.Number `json:"balance"`
	Currency      string      `json:"currency"`
	Status        string      `json:"status"`
	InterestRate  json.Number `json:"interestRate,omitempty"`
	OpenedAt      string      `json:"openedAt,omitempty"`
}

type CreateAccountRequest struct {
	AccountType  string `json:"accountType"`
	AccountName  string `json:"accountName"`
	Currency     string `json:"currency,omitempty"`
	InterestRate string `json:"interestRate,omitempty"`
}

type Transaction struct {
	ID              string      `json:"id"`
	AccountID       string      `json:"accountId"`
	ToAccountID     string      `json:"toAccountId,omitempty"`
	TransactionType string      `json:"transactionType"`
	Amount          json.Number `json:"amount"`
	BalanceAfter    json.Number `json:"balanceAfter,omitempty"`
	Description     string      `json:"description,omitempty"`
	Reference       string      `json:"reference,omitempty"`
	Status          string      `json:"status"`
	CreatedAt       string      `json:"createdAt,omitempty"`
}

type CreateTransactionRequest struct {
	AccountID       string `json:"accountId"`
	ToAccountID     string `json:"toAccountId,omitempty"`
	TransactionType string `json:"transactionType"`
	Amount          string `json:"amount"`
	Description     string `json:"description,omitempty"`
	Reference       string `json:"reference,omitempty"`
}

type Loan struct {
	ID              string      `json:"id"`
	LoanNumber      string      `json:"loanNumber"`
	LoanType        string      `json:"loanType"`
	PrincipalAmount json.Number `json:"principalAmount"`
	InterestRate    json.Number `json:"interestRate"`
	TenureMonths    int         `json:"tenureMonths"`
	MonthlyEMI      json.Number `json:"monthlyEMI"`
	AmountPaid      json.Number `json:"amountPaid"`
	AmountRemaining json.Number `json:"amountRemaining"`
	Status          string      `json:"status"`
	Purpose         string      `json:"purpose,omitempty"`
	CreatedAt       string      `json:"createdAt,omitempty"`
}

type EMISchedule struct {
	ID                string      `json:"id"`
	InstallmentNumber int         `json:"installmentNumber"`
	DueDate           string      `json:"dueDate"`
	PrincipalAmount   json.Number `json:"principalAmount"`
	InterestAmount    json.Number `json:"interestAmount"`
	TotalAmount       json.Number `json:"totalAmount"`
	IsPaid            bool        `json:"isPaid"`
}

type LoanApplication struct {
	ID                   string         `json:"id"`
	CustomerID           string         `json:"customerId,omitempty"`
	LoanType             string         `json:"loanType"`
	RequestedAmount      json.Number    `json:"requestedAmount"`
	Purpose              string         `json:"purpose,omitempty"`
	EmploymentDetails    map[string]any `json:"employmentDetails,omitempty"`
	Status               string         `json:"status"`
	ApprovedAmount       json.Number    `json:"approvedAmount,omitempty"`
	ApprovedInterestRate json.Number    `json:"approvedInterestRate,omitempty"`
	ApprovedTenureMonths int            `json:"approvedTenureMonths,omitempty"`
	SubmittedAt          string         `json:"submittedAt,omitempty"`
	ReviewedAt           string         `json:"reviewedAt,omitempty"`
}

type LoanApproval struct {
	ID         string `json:"id"`
	Step       int    `json:"step"`
	Status     string `json:"status"`
	Comments   string `json:"comments,omitempty"`
	ApproverID string `json:"approverId,omitempty"`
	ApprovedAt string `json:"approvedAt,omitempty"`
}

type SubmitLoanRequest struct {
	LoanType           string         `json:"loanType"`
	RequestedAmount    string         `json:"requestedAmount"`
	Purpose            string         `json:"purpose,omitempty"`
	EmploymentDetails  map[string]any `json:"employmentDetails,omitempty"`
	FinancialDocuments map[string]any `json:"financialDocuments,omitempty"`
}

// Review actions.
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

type ReviewLoanRequest struct {
	Action         string   `json:"action"`
	Comments       string   `json:"comments,omitempty"`
	ApprovedAmount *float64 `json:"approvedAmount,omitempty"`
	InterestRate   *float64 `json:"interestRate,omitempty"`
	TenureMonths   *int     `json:"tenureMonths,omitempty"`
}

type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt,omitempty"`
	ReadAt    string `json:"readAt,omitempty"`
}

type CustomerAnalytics struct {
	Accounts struct {
		Total        int         `json:"total"`
		TotalBalance json.Number `json:"totalBalance"`
	} `json:"accounts"`
	Loans struct {
		Total       int         `json:"total"`
		Active      int         `json:"active"`
		TotalAmount json.Number `json:"totalAmount"`
		TotalPaid   json.Number `json:"totalPaid"`
		Remaining   json.Number `json:"remaining"`
	} `json:"loans"`
	Transactions struct {
		Total    int         `json:"total"`
		Income   json.Number `json:"income"`
		Expenses json.Number `json:"expenses"`
		Net      json.Number `json:"net"`
	} `json:"transactions"`
	UpcomingEMIs []EMISchedule `json:"upcomingEMIs"`
}

type BankerAnalytics struct {
	PendingApplications int            `json:"pendingApplications"`
	TotalCustomers      int            `json:"totalCustomers"`
	RecentActivity      map[string]any `json:"recentActivity"`
}

type AdminAnalytics struct {
	TotalCustomers  int              `json:"totalCustomers"`
	RecentAuditLogs []map[string]any `json:"recentAuditLogs"`
	SystemHealth    struct {
		Status string `json:"status"`
		Uptime int64  `json:"uptime"`
	} `json:"systemHealth"`
}
