package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

var (
	errNotFound           = errors.New("not found")
	errForbidden          = errors.New("forbidden")
	errUserExists         = errors.New("user already exists")
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidRefresh     = errors.New("invalid refresh token")
	errInsufficientFunds  = errors.New("insufficient funds")
)

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return badRequestError{msg: msg} }

// Loan terms applied when a reviewer approves without overrides.
const (
	defaultInterestRate = 12.0
	defaultTenureMonths = 36
)

type user struct {
	models.Identity
	passwordHash []byte
	fullName     string
	phone        string
	address      string
	createdAt    time.Time
}

func (u *user) staff() bool {
	return u.HasRole(models.RoleBanker, models.RoleAdmin)
}

func (u *user) canSee(ownerID string) bool {
	return u.ID == ownerID || u.staff()
}

type refreshSession struct {
	userID    string
	expiresAt time.Time
}

type account struct {
	view    models.Account
	ownerID string
	balance int64
}

type transaction struct {
	view    models.Transaction
	ownerID string
	amount  int64
	at      time.Time
}

type application struct {
	view      models.LoanApplication
	ownerID   string
	requested int64
	at        time.Time
	approvals []models.LoanApproval
}

type loan struct {
	view      models.Loan
	ownerID   string
	emi       int64
	principal int64
	paid      int64
	remaining int64
	schedule  []models.EMISchedule
	due       []time.Time
}

type notification struct {
	view    models.Notification
	ownerID string
}

// repository holds all dev server state in memory.
type repository struct {
	mu sync.Mutex

	users       map[string]*user
	usersByName map[string]*user
	sessions    map[string]*refreshSession

	accounts      []*account
	transactions  []*transaction
	applications  []*application
	loans         []*loan
	notifications []*notification
	auditLog      []map[string]any

	bcryptCost int
	numbers    int
	now        func() time.Time
}

func newRepository(bcryptCost int, now func() time.Time) *repository {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &repository{
		users:       make(map[string]*user),
		usersByName: make(map[string]*user),
		sessions:    make(map[string]*refreshSession),
		bcryptCost:  bcryptCost,
		now:         now,
	}
}

func (r *repository) stamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

func (r *repository) nextNumber(prefix string) string {
	r.numbers++
	return fmt.Sprintf("%s%010d", prefix, r.numbers)
}

func (r *repository) audit(action, username string) {
	r.auditLog = append(r.auditLog, map[string]any{
		"id":        uuid.NewString(),
		"action":    action,
		"username":  username,
		"timestamp": r.stamp(),
	})
}

func (r *repository) createUser(req models.RegisterRequest) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(req.Username)
	if _, exists := r.usersByName[key]; exists {
		return nil, errUserExists
	}

	u := &user{
		Identity: models.Identity{
			ID:       uuid.NewString(),
			Username: req.Username,
			Email:    req.Email,
			Role:     req.Role,
		},
		passwordHash: hash,
		fullName:     req.FullName,
		phone:        req.Phone,
		address:      req.Address,
		createdAt:    r.now(),
	}
	r.users[u.ID] = u
	r.usersByName[key] = u
	r.audit("REGISTER", u.Username)
	return u, nil
}

func (r *repository) authenticate(username, password string) (*user, error) {
	r.mu.Lock()
	u, ok := r.usersByName[strings.ToLower(username)]
	r.mu.Unlock()
	if !ok {
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	r.mu.Lock()
	r.audit("LOGIN", u.Username)
	r.mu.Unlock()
	return u, nil
}

func (r *repository) userByID(id string) (*user, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

func (r *repository) createSession(userID, token string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = &refreshSession{userID: userID, expiresAt: r.now().Add(ttl)}
}

// rotateSession consumes old and replaces it with next. A consumed or
// expired token is rejected.
func (r *repository) rotateSession(old, next string, ttl time.Duration) (*user, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[old]
	if !ok {
		return nil, errInvalidRefresh
	}
	delete(r.sessions, old)
	if !r.now().Before(sess.expiresAt) {
		return nil, errInvalidRefresh
	}

	u, ok := r.users[sess.userID]
	if !ok {
		return nil, errInvalidRefresh
	}
	r.sessions[next] = &refreshSession{userID: u.ID, expiresAt: r.now().Add(ttl)}
	return u, nil
}

func (r *repository) revokeSessions(u *user) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, sess := range r.sessions {
		if sess.userID == u.ID {
			delete(r.sessions, token)
			n++
		}
	}
	r.audit("LOGOUT", u.Username)
	return n
}

func (r *repository) sessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (a *account) snapshot() models.Account {
	v := a.view
	v.Balance = money(a.balance)
	return v
}

func (r *repository) listAccounts(actor *user) []models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Account{}
	for _, a := range r.accounts {
		if actor.canSee(a.ownerID) {
			out = append(out, a.snapshot())
		}
	}
	return out
}

func (r *repository) findAccount(actor *user, id string) (*account, error) {
	for _, a := range r.accounts {
		if a.view.ID != id {
			continue
		}
		if !actor.canSee(a.ownerID) {
			return nil, errForbidden
		}
		return a, nil
	}
	return nil, errNotFound
}

func (r *repository) getAccount(actor *user, id string) (models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.findAccount(actor, id)
	if err != nil {
		return models.Account{}, err
	}
	return a.snapshot(), nil
}

func (r *repository) createAccount(actor *user, req models.CreateAccountRequest) (models.Account, error) {
	accountType := strings.ToLower(strings.TrimSpace(req.AccountType))
	if accountType != models.AccountChecking && accountType != models.AccountSavings {
		return models.Account{}, badRequest("Account type must be checking or savings")
	}
	if strings.TrimSpace(req.AccountName) == "" {
		return models.Account{}, badRequest("Account name is required")
	}
	if req.InterestRate != "" {
		if _, err := strconv.ParseFloat(req.InterestRate, 64); err != nil {
			return models.Account{}, badRequest("Interest rate must be a number")
		}
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.openAccount(actor.ID, accountType, req.AccountName, currency)
	a.view.InterestRate = json.Number(req.InterestRate)
	return a.snapshot(), nil
}

func (r *repository) openAccount(ownerID, accountType, name, currency string) *account {
	a := &account{
		view: models.Account{
			ID:            uuid.NewString(),
			AccountNumber: r.nextNumber("ACC"),
			AccountType:   accountType,
			AccountName:   name,
			Currency:      currency,
			Status:        models.AccountStatusActive,
			OpenedAt:      r.stamp(),
		},
		ownerID: ownerID,
	}
	r.accounts = append(r.accounts, a)
	return a
}

func (r *repository) record(a *account, txnType string, amount int64, description, toAccountID string) *transaction {
	t := &transaction{
		view: models.Transaction{
			ID:              uuid.NewString(),
			AccountID:       a.view.ID,
			ToAccountID:     toAccountID,
			TransactionType: txnType,
			Amount:          money(amount),
			BalanceAfter:    money(a.balance),
			Description:     description,
			Reference:       r.nextNumber("TXN"),
			Status:          "completed",
			CreatedAt:       r.stamp(),
		},
		ownerID: a.ownerID,
		amount:  amount,
		at:      r.now(),
	}
	r.transactions = append(r.transactions, t)
	return t
}

// listTransactions returns transactions newest first. An empty accountID
// lists every transaction the actor can see.
func (r *repository) listTransactions(actor *user, accountID string, limit, offset int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if accountID != "" {
		if _, err := r.findAccount(actor, accountID); err != nil {
			return nil, err
		}
	}

	var matched []models.Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		t := r.transactions[i]
		if accountID != "" && t.view.AccountID != accountID && t.view.ToAccountID != accountID {
			continue
		}
		if accountID == "" && !actor.canSee(t.ownerID) {
			continue
		}
		matched = append(matched, t.view)
	}

	start, end := page(len(matched), limit, offset)
	out := make([]models.Transaction, 0, end-start)
	return append(out, matched[start:end]...), nil
}

func (r *repository) createTransaction(actor *user, req models.CreateTransactionRequest) (models.Transaction, error) {
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return models.Transaction{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.findAccount(actor, req.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}

	switch req.TransactionType {
	case models.TxnDeposit:
		a.balance += amount
	case models.TxnWithdrawal, models.TxnPayment:
		if a.balance < amount {
			return models.Transaction{}, errInsufficientFunds
		}
		a.balance -= amount
	case models.TxnTransfer:
		if req.ToAccountID == "" || req.ToAccountID == req.AccountID {
			return models.Transaction{}, badRequest("Transfer requires a different destination account")
		}
		var dest *account
		for _, candidate := range r.accounts {
			if candidate.view.ID == req.ToAccountID {
				dest = candidate
				break
			}
		}
		if dest == nil {
			return models.Transaction{}, errNotFound
		}
		if a.balance < amount {
			return models.Transaction{}, errInsufficientFunds
		}
		a.balance -= amount
		dest.balance += amount
	default:
		return models.Transaction{}, badRequest("Unknown transaction type")
	}

	t := r.record(a, req.TransactionType, amount, req.Description, req.ToAccountID)
	if req.Reference != "" {
		t.view.Reference = req.Reference
	}
	return t.view, nil
}

func (r *repository) submitApplication(actor *user, req models.SubmitLoanRequest) (models.LoanApplication, error) {
	if strings.TrimSpace(req.LoanType) == "" {
		return models.LoanApplication{}, badRequest("Loan type is required")
	}
	amount, err := parseMoney(req.RequestedAmount)
	if err != nil {
		return models.LoanApplication{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	app := r.fileApplication(actor.ID, req.LoanType, amount, req.Purpose)
	app.view.EmploymentDetails = req.EmploymentDetails
	r.notify(actor.ID, "loan_application", "Application Submitted",
		fmt.Sprintf("Your %s loan application for $%s was received", req.LoanType, money(amount)))
	return app.view, nil
}

func (r *repository) fileApplication(ownerID, loanType string, amount int64, purpose string) *application {
	app := &application{
		view: models.LoanApplication{
			ID:              uuid.NewString(),
			CustomerID:      ownerID,
			LoanType:        loanType,
			RequestedAmount: money(amount),
			Purpose:         purpose,
			Status:          models.LoanSubmitted,
			SubmittedAt:     r.stamp(),
		},
		ownerID:   ownerID,
		requested: amount,
		at:        r.now(),
		approvals: []models.LoanApproval{{
			ID:     uuid.NewString(),
			Step:   1,
			Status: "PENDING",
		}},
	}
	r.applications = append(r.applications, app)
	return app
}

func (a *application) pending() bool {
	return a.view.Status == models.LoanSubmitted || a.view.Status == models.LoanUnderReview
}

// listApplications returns the actor's applications, or every pending
// application when pendingOnly is set.
func (r *repository) listApplications(actor *user, pendingOnly bool) []models.LoanApplication {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.LoanApplication{}
	for _, app := range r.applications {
		if pendingOnly {
			if app.pending() {
				out = append(out, app.view)
			}
			continue
		}
		if actor.canSee(app.ownerID) {
			out = append(out, app.view)
		}
	}
	return out
}

func (r *repository) findApplication(actor *user, id string) (*application, error) {
	for _, app := range r.applications {
		if app.view.ID != id {
			continue
		}
		if !actor.canSee(app.ownerID) {
			return nil, errForbidden
		}
		return app, nil
	}
	return nil, errNotFound
}

func (r *repository) getApplication(actor *user, id string) (models.LoanApplication, []models.LoanApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, err := r.findApplication(actor, id)
	if err != nil {
		return models.LoanApplication{}, nil, err
	}
	return app.view, append([]models.LoanApproval(nil), app.approvals...), nil
}

// reviewApplication approves or rejects a pending application. Approval
// creates an active loan and disburses it into the owner's checking account.
func (r *repository) reviewApplication(actor *user, id string, req models.ReviewLoanRequest) (models.LoanApplication, *models.Loan, error) {
	if req.Action != models.ReviewApprove && req.Action != models.ReviewReject {
		return models.LoanApplication{}, nil, badRequest("Action must be approve or reject")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	app, err := r.findApplication(actor, id)
	if err != nil {
		return models.LoanApplication{}, nil, err
	}
	if !app.pending() {
		return models.LoanApplication{}, nil, badRequest("Application has already been reviewed")
	}

	amount, rate, tenure, err := loanTerms(app.requested, req)
	if err != nil {
		return models.LoanApplication{}, nil, err
	}

	step := &app.approvals[len(app.approvals)-1]
	step.ApproverID = actor.ID
	step.Comments = req.Comments
	step.ApprovedAt = r.stamp()
	app.view.ReviewedAt = r.stamp()

	if req.Action == models.ReviewReject {
		step.Status = "REJECTED"
		app.view.Status = models.LoanRejected
		r.notify(app.ownerID, "loan_approval", "Loan Application Rejected",
			strings.TrimSpace("Your loan application has been rejected. "+req.Comments))
		r.audit("REJECT", actor.Username)
		return app.view, nil, nil
	}

	step.Status = "APPROVED"
	app.view.Status = models.LoanApproved
	app.view.ApprovedAmount = money(amount)
	app.view.ApprovedInterestRate = rate2(rate)
	app.view.ApprovedTenureMonths = tenure

	l := r.issueLoan(app.ownerID, app.view.LoanType, app.view.Purpose, amount, rate, tenure)
	r.notify(app.ownerID, "loan_approval", "Loan Approved",
		fmt.Sprintf("Your %s loan of $%s has been approved", app.view.LoanType, money(amount)))
	r.audit("APPROVE", actor.Username)

	view := l.snapshot()
	return app.view, &view, nil
}

// loanTerms applies reviewer overrides to the requested amount and the
// default rate and tenure.
func loanTerms(requested int64, req models.ReviewLoanRequest) (int64, float64, int, error) {
	amount := requested
	if req.ApprovedAmount != nil {
		if *req.ApprovedAmount <= 0 {
			return 0, 0, 0, badRequest("Approved amount must be positive")
		}
		amount = int64(math.Round(*req.ApprovedAmount * 100))
	}
	rate := defaultInterestRate
	if req.InterestRate != nil {
		if *req.InterestRate < 0 {
			return 0, 0, 0, badRequest("Interest rate must not be negative")
		}
		rate = *req.InterestRate
	}
	tenure := defaultTenureMonths
	if req.TenureMonths != nil {
		if *req.TenureMonths <= 0 {
			return 0, 0, 0, badRequest("Tenure must be positive")
		}
		tenure = *req.TenureMonths
	}
	return amount, rate, tenure, nil
}

func (r *repository) issueLoan(ownerID, loanType, purpose string, principal int64, rate float64, tenure int) *loan {
	var checking *account
	for _, a := range r.accounts {
		if a.ownerID == ownerID && a.view.AccountType == models.AccountChecking {
			checking = a
			break
		}
	}
	if checking == nil {
		checking = r.openAccount(ownerID, models.AccountChecking, "Primary Checking", "USD")
	}

	emi := emiCents(principal, rate, tenure)
	l := &loan{
		view: models.Loan{
			ID:           uuid.NewString(),
			LoanNumber:   r.nextNumber("LN"),
			LoanType:     loanType,
			InterestRate: rate2(rate),
			TenureMonths: tenure,
			MonthlyEMI:   money(emi),
			Status:       models.LoanActive,
			Purpose:      purpose,
			CreatedAt:    r.stamp(),
		},
		ownerID:   ownerID,
		emi:       emi,
		principal: principal,
		remaining: emi * int64(tenure),
	}

	monthly := rate / 12 / 100
	outstanding := float64(principal)
	first := r.now().AddDate(0, 1, 0)
	for i := 1; i <= tenure; i++ {
		interest := int64(math.Round(outstanding * monthly))
		part := emi - interest
		outstanding -= float64(part)
		due := first.AddDate(0, i-1, 0)
		l.schedule = append(l.schedule, models.EMISchedule{
			ID:                uuid.NewString(),
			InstallmentNumber: i,
			DueDate:           due.UTC().Format(time.RFC3339),
			PrincipalAmount:   money(part),
			InterestAmount:    money(interest),
			TotalAmount:       money(emi),
		})
		l.due = append(l.due, due)
	}
	r.loans = append(r.loans, l)

	checking.balance += principal
	r.record(checking, models.TxnDeposit, principal, "Loan disbursement - "+l.view.LoanNumber, "")
	return l
}

func (l *loan) snapshot() models.Loan {
	v := l.view
	v.PrincipalAmount = money(l.principal)
	v.AmountPaid = money(l.paid)
	v.AmountRemaining = money(l.remaining)
	return v
}

func (r *repository) listLoans(actor *user) []models.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Loan{}
	for _, l := range r.loans {
		if actor.canSee(l.ownerID) {
			out = append(out, l.snapshot())
		}
	}
	return out
}

func (r *repository) findLoan(actor *user, id string) (*loan, error) {
	for _, l := range r.loans {
		if l.view.ID != id {
			continue
		}
		if !actor.canSee(l.ownerID) {
			return nil, errForbidden
		}
		return l, nil
	}
	return nil, errNotFound
}

func (r *repository) getLoan(actor *user, id string) (models.Loan, []models.EMISchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.findLoan(actor, id)
	if err != nil {
		return models.Loan{}, nil, err
	}
	return l.snapshot(), append([]models.EMISchedule(nil), l.schedule...), nil
}

func (r *repository) payEMI(actor *user, loanID, emiID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.findLoan(actor, loanID)
	if err != nil {
		return err
	}
	if l.ownerID != actor.ID {
		return errForbidden
	}

	idx := -1
	for i := range l.schedule {
		if l.schedule[i].ID == emiID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errNotFound
	}
	if l.schedule[idx].IsPaid {
		return badRequest("EMI already paid")
	}

	a, err := r.findAccount(actor, accountID)
	if err != nil {
		return err
	}
	if a.balance < l.emi {
		return errInsufficientFunds
	}

	a.balance -= l.emi
	r.record(a, models.TxnPayment, l.emi,
		fmt.Sprintf("EMI %d - %s", l.schedule[idx].InstallmentNumber, l.view.LoanNumber), "")

	l.schedule[idx].IsPaid = true
	l.paid += l.emi
	l.remaining -= l.emi
	if l.remaining < 0 {
		l.remaining = 0
	}

	allPaid := true
	for _, e := range l.schedule {
		if !e.IsPaid {
			allPaid = false
			break
		}
	}
	if allPaid {
		l.view.Status = models.LoanClosed
	}
	return nil
}

func (r *repository) notify(ownerID, kind, title, message string) {
	r.notifications = append(r.notifications, &notification{
		view: models.Notification{
			ID:        uuid.NewString(),
			Type:      kind,
			Title:     title,
			Message:   message,
			CreatedAt: r.stamp(),
		},
		ownerID: ownerID,
	})
}

// listNotifications returns the actor's notifications newest first.
func (r *repository) listNotifications(actor *user, limit, offset int, unreadOnly bool) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.ownerID != actor.ID || (unreadOnly && n.view.IsRead) {
			continue
		}
		matched = append(matched, n.view)
	}

	start, end := page(len(matched), limit, offset)
	out := make([]models.Notification, 0, end-start)
	return append(out, matched[start:end]...)
}

func (r *repository) markRead(actor *user, id string) (models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.view.ID != id {
			continue
		}
		if n.ownerID != actor.ID {
			return models.Notification{}, errForbidden
		}
		if !n.view.IsRead {
			n.view.IsRead = true
			n.view.ReadAt = r.stamp()
		}
		return n.view, nil
	}
	return models.Notification{}, errNotFound
}

func (r *repository) markAllRead(actor *user) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, item := range r.notifications {
		if item.ownerID == actor.ID && !item.view.IsRead {
			item.view.IsRead = true
			item.view.ReadAt = r.stamp()
			n++
		}
	}
	return n
}

func (r *repository) customerAnalytics(actor *user) models.CustomerAnalytics {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out models.CustomerAnalytics

	var balance int64
	for _, a := range r.accounts {
		if a.ownerID == actor.ID {
			out.Accounts.Total++
			balance += a.balance
		}
	}
	out.Accounts.TotalBalance = money(balance)

	var principal, paid, remaining int64
	type upcoming struct {
		due time.Time
		emi models.EMISchedule
	}
	var pending []upcoming
	for _, l := range r.loans {
		if l.ownerID != actor.ID {
			continue
		}
		out.Loans.Total++
		principal += l.principal
		paid += l.paid
		remaining += l.remaining
		if l.view.Status != models.LoanActive {
			continue
		}
		out.Loans.Active++
		for i, e := range l.schedule {
			if !e.IsPaid {
				pending = append(pending, upcoming{due: l.due[i], emi: e})
			}
		}
	}
	out.Loans.TotalAmount = money(principal)
	out.Loans.TotalPaid = money(paid)
	out.Loans.Remaining = money(remaining)

	var income, expenses int64
	for _, t := range r.transactions {
		if t.ownerID != actor.ID {
			continue
		}
		out.Transactions.Total++
		if t.view.TransactionType == models.TxnDeposit {
			income += t.amount
		} else {
			expenses += t.amount
		}
	}
	out.Transactions.Income = money(income)
	out.Transactions.Expenses = money(expenses)
	out.Transactions.Net = money(income - expenses)

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].due.Before(pending[j].due) })
	out.UpcomingEMIs = []models.EMISchedule{}
	for i := 0; i < len(pending) && i < 5; i++ {
		out.UpcomingEMIs = append(out.UpcomingEMIs, pending[i].emi)
	}
	return out
}

func (r *repository) bankerAnalytics() models.BankerAnalytics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := models.BankerAnalytics{TotalCustomers: r.customerCount()}
	weekAgo := r.now().AddDate(0, 0, -7)
	dayAgo := r.now().Add(-24 * time.Hour)

	recentApplications := 0
	for _, app := range r.applications {
		if app.pending() {
			out.PendingApplications++
		}
		if app.at.After(weekAgo) {
			recentApplications++
		}
	}
	recentTransactions := 0
	for _, t := range r.transactions {
		if t.at.After(dayAgo) {
			recentTransactions++
		}
	}
	out.RecentActivity = map[string]any{
		"applicationsThisWeek": recentApplications,
		"transactionsToday":    recentTransactions,
	}
	return out
}

func (r *repository) adminAnalytics(uptime time.Duration) models.AdminAnalytics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := models.AdminAnalytics{
		TotalCustomers:  r.customerCount(),
		RecentAuditLogs: []map[string]any{},
	}
	for i := len(r.auditLog) - 1; i >= 0 && len(out.RecentAuditLogs) < 10; i-- {
		out.RecentAuditLogs = append(out.RecentAuditLogs, r.auditLog[i])
	}
	out.SystemHealth.Status = "operational"
	out.SystemHealth.Uptime = int64(uptime.Seconds())
	return out
}

func (r *repository) customerCount() int {
	n := 0
	for _, u := range r.users {
		if u.HasRole(models.RoleCustomer) {
			n++
		}
	}
	return n
}

// parseMoney parses a positive decimal amount into cents.
func parseMoney(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, badRequest("Amount must be a number")
	}
	cents := int64(math.Round(f * 100))
	if cents <= 0 {
		return 0, badRequest("Amount must be positive")
	}
	return cents, nil
}

func money(cents int64) json.Number {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return json.Number(fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100))
}

func rate2(rate float64) json.Number {
	return json.Number(strconv.FormatFloat(rate, 'f', 2, 64))
}

// emiCents returns the amortised monthly instalment for principal cents.
func emiCents(principal int64, annualRate float64, months int) int64 {
	p := float64(principal)
	r := annualRate / 12 / 100
	if r == 0 {
		return int64(math.Round(p / float64(months)))
	}
	f := math.Pow(1+r, float64(months))
	return int64(math.Round(p * r * f / (f - 1)))
}
