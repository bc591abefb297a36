package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/devserver"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

func TestCommandsRegistered(t *testing.T) {
	rootCmd := NewRootCmd()

	expectedCommands := map[string]bool{
		"login":         false,
		"register":      false,
		"logout":        false,
		"whoami":        false,
		"refresh":       false,
		"accounts":      false,
		"transactions":  false,
		"loans":         false,
		"notifications": false,
		"analytics":     false,
		"dev-server":    false,
	}

	for _, cmd := range rootCmd.Commands() {
		cmdName := cmd.Use
		for key := range expectedCommands {
			if strings.HasPrefix(cmdName, key) {
				expectedCommands[key] = true
				break
			}
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestLoansCommandHasSubcommands(t *testing.T) {
	rootCmd := NewRootCmd()
	loans, _, err := rootCmd.Find([]string{"loans"})
	require.NoError(t, err)

	var names []string
	for _, sub := range loans.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get", "applications", "apply", "pending", "review", "pay"}, names)
}

func TestRootCmd_FlagsArePerTree(t *testing.T) {
	first := NewRootCmd()
	require.NoError(t, first.ParseFlags([]string{"--profile", "work", "-o", "json"}))
	assert.Equal(t, "work", first.Flag("profile").Value.String())

	second := NewRootCmd()
	assert.Empty(t, second.Flag("profile").Value.String())
	assert.Equal(t, "table", second.Flag("output").Value.String())
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	t       *testing.T
	cfgPath string
	clock   *clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	color.NoColor = true

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	srv, err := devserver.New(devserver.Config{
		JWTSecret:       "cli-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Seed:            7,
		BcryptCost:      bcrypt.MinCost,
		Clock:           clk.Now,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`api:
  base_url: %s%s
  timeout: 5s
store:
  backend: file
  path: %s
logging:
  level: error
`, ts.URL, devserver.APIPrefix, filepath.Join(dir, "credentials.yaml"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return &env{t: t, cfgPath: cfgPath, clock: clk}
}

func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *env) login(username string) {
	e.t.Helper()
	out, err := e.run("login", "-u", username, "-p", devserver.DemoPassword)
	require.NoError(e.t, err)
	require.Contains(e.t, out, "Logged in as "+username)
}

func TestGuardedCommandsRequireLogin(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = e.run("accounts", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoginWhoamiLogout(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("login", "-u", "alice", "-p", devserver.DemoPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice (customer)")
	assert.Contains(t, out, "/dashboard")

	out, err = e.run("whoami", "-o", "json")
	require.NoError(t, err)
	var me models.Identity
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, models.RoleCustomer, me.Role)

	out, err = e.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = e.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_BadPassword(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")

	_, err = e.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestProfilesAreIsolated(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("--profile", "work", "login", "-u", "bob", "-p", devserver.DemoPassword)
	require.NoError(t, err)

	_, err = e.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err := e.run("--profile", "work", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "bob")
}

func TestRoleGuard(t *testing.T) {
	e := newEnv(t)
	e.login("alice")

	_, err := e.run("loans", "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires role banker or admin")
	assert.Contains(t, err.Error(), "signed in as customer")
}

func TestAccountsList(t *testing.T) {
	e := newEnv(t)
	e.login("alice")

	out, err := e.run("accounts", "list", "-o", "json")
	require.NoError(t, err)
	var accounts []models.Account
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	assert.Len(t, accounts, 2)

	out, err = e.run("accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Everyday Checking")
	assert.Contains(t, out, "BALANCE")
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	e := newEnv(t)
	e.login("alice")

	e.clock.Advance(2 * time.Minute)

	out, err := e.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	// The rotated pair was persisted, so a later run needs no refresh.
	out, err = e.run("accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Everyday Checking")
}

func TestExpiredRefreshTokenEndsSession(t *testing.T) {
	e := newEnv(t)
	e.login("alice")

	e.clock.Advance(2 * time.Hour)

	_, err := e.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoanReviewFlow(t *testing.T) {
	e := newEnv(t)
	e.login("bob")

	out, err := e.run("loans", "pending", "-o", "json")
	require.NoError(t, err)
	var pending []models.LoanApplication
	require.NoError(t, json.Unmarshal([]byte(out), &pending))
	require.NotEmpty(t, pending)

	out, err = e.run("loans", "review", pending[0].ID, "--action", "approve", "--rate", "10", "--tenure", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "APPROVED")
	assert.Contains(t, out, "monthly EMI")

	out, err = e.run("analytics")
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING")
}
