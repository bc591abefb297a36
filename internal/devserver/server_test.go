package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t     *testing.T
	srv   *Server
	ts    *httptest.Server
	clock *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	srv, err := New(Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Seed:            7,
		BcryptCost:      bcrypt.MinCost,
		Clock:           clock.Now,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{t: t, srv: srv, ts: ts, clock: clock}
}

// call sends a JSON request and decodes the response into out when non-nil.
func (h *harness) call(method, path, token string, body, out any) int {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.ts.URL+APIPrefix+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.ts.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (h *harness) login(username string) models.AuthResponse {
	h.t.Helper()
	var resp models.AuthResponse
	status := h.call(http.MethodPost, "/auth/login", "", models.LoginRequest{Username: username, Password: DemoPassword}, &resp)
	require.Equal(h.t, http.StatusOK, status)
	return resp
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestLoginAndMe(t *testing.T) {
	h := newHarness(t)

	auth := h.login("alice")
	assert.NotEmpty(t, auth.AccessToken)
	assert.NotEmpty(t, auth.RefreshToken)
	assert.Equal(t, "Bearer", auth.TokenType)
	require.NotNil(t, auth.User)
	assert.Equal(t, "alice", auth.User.Username)
	assert.Equal(t, models.RoleCustomer, auth.User.Role)

	var me models.MeResponse
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/auth/me", auth.AccessToken, nil, &me))
	assert.Equal(t, auth.User.ID, me.User.ID)
}

func TestLogin_Rejects(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"wrong password", models.LoginRequest{Username: "alice", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", models.LoginRequest{Username: "mallory", Password: DemoPassword}, http.StatusUnauthorized},
		{"missing password", models.LoginRequest{Username: "alice"}, http.StatusBadRequest},
		{"malformed body", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg models.MessageResponse
			assert.Equal(t, tt.wantStatus, h.call(http.MethodPost, "/auth/login", "", tt.body, &msg))
			assert.NotEmpty(t, msg.Message)
		})
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	var resp models.AuthResponse
	status := h.call(http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Username: "dave", Email: "dave@example.com", Password: "hunter22",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.RoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.RefreshToken)

	tests := []struct {
		name       string
		req        models.RegisterRequest
		wantStatus int
	}{
		{"duplicate username", models.RegisterRequest{Username: "Dave", Email: "d2@example.com", Password: "x"}, http.StatusConflict},
		{"invalid email", models.RegisterRequest{Username: "erin", Email: "erin", Password: "x"}, http.StatusBadRequest},
		{"unknown role", models.RegisterRequest{Username: "erin", Email: "erin@example.com", Password: "x", Role: "root"}, http.StatusBadRequest},
		{"missing password", models.RegisterRequest{Username: "erin", Email: "erin@example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, h.call(http.MethodPost, "/auth/register", "", tt.req, nil))
		})
	}

	var banker models.AuthResponse
	require.Equal(t, http.StatusCreated, h.call(http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Username: "frank", Email: "frank@example.com", Password: "x", Role: "BANKER",
	}, &banker))
	assert.Equal(t, models.RoleBanker, banker.User.Role)
}

func TestRefresh_RotatesAndConsumes(t *testing.T) {
	h := newHarness(t)
	auth := h.login("alice")

	var rotated models.AuthResponse
	require.Equal(t, http.StatusOK, h.call(http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: auth.RefreshToken}, &rotated))
	assert.NotEqual(t, auth.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, auth.AccessToken, rotated.AccessToken)
	require.NotNil(t, rotated.User)
	assert.Equal(t, "alice", rotated.User.Username)

	// The consumed token is rejected.
	assert.Equal(t, http.StatusUnauthorized, h.call(http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: auth.RefreshToken}, nil))
	assert.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/auth/refresh", "", models.RefreshRequest{}, nil))

	assert.Equal(t, http.StatusOK, h.call(http.MethodGet, "/auth/me", rotated.AccessToken, nil, nil))
}

func TestRefresh_Expired(t *testing.T) {
	h := newHarness(t)
	auth := h.login("alice")

	h.clock.Advance(2 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, h.call(http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: auth.RefreshToken}, nil))
}

func TestAccessTokenExpiry(t *testing.T) {
	h := newHarness(t)
	auth := h.login("alice")

	h.clock.Advance(2 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, h.call(http.MethodGet, "/auth/me", auth.AccessToken, nil, nil))

	var rotated models.AuthResponse
	require.Equal(t, http.StatusOK, h.call(http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: auth.RefreshToken}, &rotated))
	assert.Equal(t, http.StatusOK, h.call(http.MethodGet, "/auth/me", rotated.AccessToken, nil, nil))
}

func TestAuthHeaderErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, h.ts.URL+APIPrefix+"/auth/me", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := h.ts.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestLogout_RevokesRefreshTokens(t *testing.T) {
	h := newHarness(t)
	first := h.login("alice")
	second := h.login("alice")

	var msg models.MessageResponse
	require.Equal(t, http.StatusOK, h.call(http.MethodPost, "/auth/logout", first.AccessToken, nil, &msg))
	assert.Equal(t, "Logged out successfully", msg.Message)

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		assert.Equal(t, http.StatusUnauthorized, h.call(http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: token}, nil))
	}
	assert.Equal(t, http.StatusUnauthorized, h.call(http.MethodPost, "/auth/logout", "", nil, nil))
}

func TestRoleGates(t *testing.T) {
	h := newHarness(t)
	tokens := map[string]string{
		"alice": h.login("alice").AccessToken,
		"bob":   h.login("bob").AccessToken,
		"carol": h.login("carol").AccessToken,
	}

	tests := []struct {
		method string
		path   string
		allow  []string
	}{
		{http.MethodGet, "/loan-applications/pending", []string{"bob", "carol"}},
		{http.MethodGet, "/analytics/customer", []string{"alice"}},
		{http.MethodGet, "/analytics/banker", []string{"bob", "carol"}},
		{http.MethodGet, "/analytics/admin", []string{"carol"}},
		{http.MethodGet, "/accounts", []string{"alice", "bob", "carol"}},
	}

	for _, tt := range tests {
		for username, token := range tokens {
			t.Run(tt.path+"/"+username, func(t *testing.T) {
				want := http.StatusForbidden
				for _, allowed := range tt.allow {
					if allowed == username {
						want = http.StatusOK
					}
				}
				assert.Equal(t, want, h.call(tt.method, tt.path, token, nil, nil))
			})
		}
	}
}

func TestAccountsAndTransactions(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice").AccessToken
	bob := h.login("bob").AccessToken

	var list struct {
		Accounts []models.Account `json:"accounts"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts", alice, nil, &list))
	require.Len(t, list.Accounts, 2)
	checking := list.Accounts[0]
	savings := list.Accounts[1]
	assert.Equal(t, models.AccountChecking, checking.AccountType)

	var created struct {
		Account models.Account `json:"account"`
	}
	require.Equal(t, http.StatusCreated, h.call(http.MethodPost, "/accounts", alice,
		models.CreateAccountRequest{AccountType: "savings", AccountName: "Holiday"}, &created))
	assert.Equal(t, "0.00", created.Account.Balance.String())
	assert.Equal(t, "USD", created.Account.Currency)

	var deposit struct {
		Transaction models.Transaction `json:"transaction"`
	}
	require.Equal(t, http.StatusCreated, h.call(http.MethodPost, "/transactions", alice, models.CreateTransactionRequest{
		AccountID: created.Account.ID, TransactionType: models.TxnDeposit, Amount: "125.50",
	}, &deposit))
	assert.Equal(t, "125.50", deposit.Transaction.BalanceAfter.String())

	assert.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/transactions", alice, models.CreateTransactionRequest{
		AccountID: created.Account.ID, TransactionType: models.TxnWithdrawal, Amount: "1000",
	}, nil))

	require.Equal(t, http.StatusCreated, h.call(http.MethodPost, "/transactions", alice, models.CreateTransactionRequest{
		AccountID: created.Account.ID, ToAccountID: savings.ID, TransactionType: models.TxnTransfer, Amount: "25.50",
	}, nil))

	var account struct {
		Account models.Account `json:"account"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts/"+created.Account.ID, alice, nil, &account))
	assert.Equal(t, "100.00", account.Account.Balance.String())

	var txns struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts/"+created.Account.ID+"/transactions?limit=1", alice, nil, &txns))
	require.Len(t, txns.Transactions, 1)
	assert.Equal(t, models.TxnTransfer, txns.Transactions[0].TransactionType)

	// Staff can read customer accounts; an unknown id is 404.
	assert.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts/"+checking.ID, bob, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(http.MethodGet, "/accounts/missing", alice, nil, nil))
}

func TestAccountIsolation(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice").AccessToken

	var other models.AuthResponse
	require.Equal(t, http.StatusCreated, h.call(http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Username: "gina", Email: "gina@example.com", Password: "pw",
	}, &other))

	var list struct {
		Accounts []models.Account `json:"accounts"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts", alice, nil, &list))
	require.NotEmpty(t, list.Accounts)

	assert.Equal(t, http.StatusForbidden, h.call(http.MethodGet, "/accounts/"+list.Accounts[0].ID, other.AccessToken, nil, nil))

	var empty struct {
		Accounts []models.Account `json:"accounts"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts", other.AccessToken, nil, &empty))
	assert.Empty(t, empty.Accounts)
}

func TestLoanLifecycle(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice").AccessToken
	bob := h.login("bob").AccessToken

	var submitted struct {
		Application models.LoanApplication `json:"application"`
	}
	require.Equal(t, http.StatusCreated, h.call(http.MethodPost, "/loan-applications", alice, models.SubmitLoanRequest{
		LoanType: "auto", RequestedAmount: "1200", Purpose: "Car",
	}, &submitted))
	assert.Equal(t, models.LoanSubmitted, submitted.Application.Status)

	var pending struct {
		Applications []models.LoanApplication `json:"applications"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/loan-applications/pending", bob, nil, &pending))
	assert.Len(t, pending.Applications, 2) // seeded application plus this one

	// Customers cannot review.
	assert.Equal(t, http.StatusForbidden, h.call(http.MethodPost, "/loan-applications/"+submitted.Application.ID+"/review", alice,
		models.ReviewLoanRequest{Action: models.ReviewApprove}, nil))

	tenure := 2
	rate := 0.0
	var reviewed struct {
		Application models.LoanApplication `json:"application"`
		Loan        *models.Loan           `json:"loan"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodPost, "/loan-applications/"+submitted.Application.ID+"/review", bob,
		models.ReviewLoanRequest{Action: models.ReviewApprove, TenureMonths: &tenure, InterestRate: &rate}, &reviewed))
	assert.Equal(t, models.LoanApproved, reviewed.Application.Status)
	require.NotNil(t, reviewed.Loan)
	assert.Equal(t, models.LoanActive, reviewed.Loan.Status)
	assert.Equal(t, "600.00", reviewed.Loan.MonthlyEMI.String())

	// A second review is rejected.
	assert.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/loan-applications/"+submitted.Application.ID+"/review", bob,
		models.ReviewLoanRequest{Action: models.ReviewReject}, nil))

	var detail struct {
		Loan         models.Loan          `json:"loan"`
		EMISchedules []models.EMISchedule `json:"emiSchedules"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/loans/"+reviewed.Loan.ID, alice, nil, &detail))
	require.Len(t, detail.EMISchedules, 2)

	var accounts struct {
		Accounts []models.Account `json:"accounts"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts", alice, nil, &accounts))
	checking := accounts.Accounts[0].ID

	for _, emi := range detail.EMISchedules {
		var msg models.MessageResponse
		require.Equal(t, http.StatusOK, h.call(http.MethodPost, "/loans/"+reviewed.Loan.ID+"/emi/"+emi.ID+"/pay", alice,
			map[string]string{"accountId": checking}, &msg))
		assert.Equal(t, "EMI paid successfully", msg.Message)
	}

	assert.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/loans/"+reviewed.Loan.ID+"/emi/"+detail.EMISchedules[0].ID+"/pay", alice,
		map[string]string{"accountId": checking}, nil))

	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/loans/"+reviewed.Loan.ID, alice, nil, &detail))
	assert.Equal(t, models.LoanClosed, detail.Loan.Status)
	assert.Equal(t, "0.00", detail.Loan.AmountRemaining.String())
	assert.Equal(t, "1200.00", detail.Loan.AmountPaid.String())
}

func TestNotifications(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice").AccessToken

	var list struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/notifications", alice, nil, &list))
	require.Len(t, list.Notifications, 3)
	assert.Equal(t, "Application Submitted", list.Notifications[0].Title)

	var marked struct {
		Notification models.Notification `json:"notification"`
	}
	require.Equal(t, http.StatusOK, h.call(http.MethodPatch, "/notifications/"+list.Notifications[0].ID+"/read", alice, nil, &marked))
	assert.True(t, marked.Notification.IsRead)

	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/notifications?unreadOnly=true", alice, nil, &list))
	assert.Len(t, list.Notifications, 2)

	require.Equal(t, http.StatusOK, h.call(http.MethodPatch, "/notifications/read-all", alice, nil, nil))
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/notifications?unreadOnly=true", alice, nil, &list))
	assert.Empty(t, list.Notifications)

	bob := h.login("bob").AccessToken
	assert.Equal(t, http.StatusForbidden, h.call(http.MethodPatch, "/notifications/"+marked.Notification.ID+"/read", bob, nil, nil))
}

func TestAnalytics(t *testing.T) {
	h := newHarness(t)

	var customer models.CustomerAnalytics
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/analytics/customer", h.login("alice").AccessToken, nil, &customer))
	assert.Equal(t, 2, customer.Accounts.Total)
	assert.Equal(t, 12, customer.Transactions.Total)
	assert.NotNil(t, customer.UpcomingEMIs)

	var banker models.BankerAnalytics
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/analytics/banker", h.login("bob").AccessToken, nil, &banker))
	assert.Equal(t, 1, banker.PendingApplications)
	assert.Equal(t, 1, banker.TotalCustomers)

	h.clock.Advance(90 * time.Second)
	var admin models.AdminAnalytics
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/analytics/admin", h.login("carol").AccessToken, nil, &admin))
	assert.Equal(t, "operational", admin.SystemHealth.Status)
	assert.Equal(t, int64(90), admin.SystemHealth.Uptime)
	require.NotEmpty(t, admin.RecentAuditLogs)
	assert.Equal(t, "LOGIN", admin.RecentAuditLogs[0]["action"])
}

func TestSeedIsDeterministic(t *testing.T) {
	balances := func() []string {
		h := newHarness(t)
		var list struct {
			Accounts []models.Account `json:"accounts"`
		}
		require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/accounts", h.login("alice").AccessToken, nil, &list))
		out := make([]string, 0, len(list.Accounts))
		for _, a := range list.Accounts {
			out = append(out, a.Balance.String())
		}
		return out
	}

	assert.Equal(t, balances(), balances())
}

func TestOperationalEndpoints(t *testing.T) {
	h := newHarness(t)
	h.login("alice")

	resp, err := h.ts.Client().Get(h.ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = h.ts.Client().Get(h.ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "finedge_devserver_http_requests_total")
	assert.Contains(t, string(body), "finedge_devserver_refresh_sessions 1")

	var msg models.MessageResponse
	assert.Equal(t, http.StatusNotFound, h.call(http.MethodGet, "/nowhere", "", nil, &msg))
	assert.True(t, strings.Contains(msg.Message, "not found"))
}

func TestMoneyHelpers(t *testing.T) {
	assert.Equal(t, "0.05", money(5).String())
	assert.Equal(t, "-1.50", money(-150).String())
	assert.Equal(t, "1234.00", money(123400).String())

	c, err := parseMoney("19.999")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), c)

	for _, bad := range []string{"", "abc", "0", "-3", "NaN"} {
		_, err := parseMoney(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, int64(888488), emiCents(10_000_000, 12, 12))
	assert.Equal(t, int64(50000), emiCents(100_000, 0, 2))
}

func TestCORSPreflight(t *testing.T) {
	srv, err := New(Config{
		JWTSecret:      "test-secret",
		BcryptCost:     bcrypt.MinCost,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/accounts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	// Without the option no CORS headers are sent.
	h := newHarness(t)
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
