package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/api"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/client"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

var staffRoles = []string{models.RoleBanker, models.RoleAdmin}

func (a *app) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage bank accounts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			accounts, err := c.API.Accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderAccounts(accounts)
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			account, err := c.API.Accounts.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderAccounts([]models.Account{*account})
		}),
	}

	var req models.CreateAccountRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new account",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			account, err := c.API.Accounts.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printer.Success("Account %s opened", account.AccountNumber)
			return a.renderAccounts([]models.Account{*account})
		}),
	}
	createCmd.Flags().StringVar(&req.AccountType, "type", models.AccountChecking, "Account type: checking or savings")
	createCmd.Flags().StringVar(&req.AccountName, "name", "", "Account name")
	createCmd.Flags().StringVar(&req.Currency, "currency", "", "Currency code (default USD)")
	createCmd.Flags().StringVar(&req.InterestRate, "interest-rate", "", "Annual interest rate in percent")
	_ = createCmd.MarkFlagRequired("name")

	cmd.AddCommand(listCmd, getCmd, createCmd)
	return cmd
}

func (a *app) renderAccounts(accounts []models.Account) error {
	rows := make([][]string, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, []string{
			acc.ID, acc.AccountNumber, acc.AccountType, acc.AccountName,
			acc.Balance.String(), acc.Currency, acc.Status,
		})
	}
	return a.render(accounts, []string{"ID", "NUMBER", "TYPE", "NAME", "BALANCE", "CURRENCY", "STATUS"}, rows)
}

func (a *app) transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List and create transactions",
	}

	var accountID string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			var (
				txns []models.Transaction
				err  error
			)
			if accountID != "" {
				txns, err = c.API.Transactions.ListForAccount(cmd.Context(), accountID, limit, offset)
			} else {
				txns, err = c.API.Transactions.List(cmd.Context(), limit, offset)
			}
			if err != nil {
				return err
			}
			return a.renderTransactions(txns)
		}),
	}
	listCmd.Flags().StringVar(&accountID, "account", "", "Only transactions for this account")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of transactions")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of transactions to skip")

	var req models.CreateTransactionRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Deposit, withdraw, pay or transfer",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			txn, err := c.API.Transactions.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printer.Success("Transaction %s recorded", txn.Reference)
			return a.renderTransactions([]models.Transaction{*txn})
		}),
	}
	createCmd.Flags().StringVar(&req.AccountID, "account", "", "Source account ID")
	createCmd.Flags().StringVar(&req.TransactionType, "type", "", "deposit, withdrawal, payment or transfer")
	createCmd.Flags().StringVar(&req.Amount, "amount", "", "Amount, e.g. 125.50")
	createCmd.Flags().StringVar(&req.ToAccountID, "to", "", "Destination account ID for transfers")
	createCmd.Flags().StringVar(&req.Description, "description", "", "Description")
	_ = createCmd.MarkFlagRequired("account")
	_ = createCmd.MarkFlagRequired("type")
	_ = createCmd.MarkFlagRequired("amount")

	cmd.AddCommand(listCmd, createCmd)
	return cmd
}

func (a *app) renderTransactions(txns []models.Transaction) error {
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.ID, t.TransactionType, t.Amount.String(), t.BalanceAfter.String(), t.Status, t.Description, t.CreatedAt,
		})
	}
	return a.render(txns, []string{"ID", "TYPE", "AMOUNT", "BALANCE AFTER", "STATUS", "DESCRIPTION", "CREATED"}, rows)
}

func (a *app) loansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Loans, loan applications and EMI payments",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List loans",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			loans, err := c.API.Loans.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderLoans(loans)
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <loan-id>",
		Short: "Show a loan and its EMI schedule",
		Args:  cobra.ExactArgs(1),
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			detail, err := c.API.Loans.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderLoanDetail(detail)
		}),
	}

	applicationsCmd := &cobra.Command{
		Use:   "applications",
		Short: "List loan applications",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			apps, err := c.API.Loans.Applications(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderApplications(apps)
		}),
	}

	var submit models.SubmitLoanRequest
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Submit a loan application",
		RunE: a.authorized([]string{models.RoleCustomer}, func(cmd *cobra.Command, c *client.Client, args []string) error {
			app, err := c.API.Loans.Submit(cmd.Context(), submit)
			if err != nil {
				return err
			}
			a.printer.Success("Application %s submitted", app.ID)
			return a.renderApplications([]models.LoanApplication{*app})
		}),
	}
	applyCmd.Flags().StringVar(&submit.LoanType, "type", "personal", "Loan type")
	applyCmd.Flags().StringVar(&submit.RequestedAmount, "amount", "", "Requested amount")
	applyCmd.Flags().StringVar(&submit.Purpose, "purpose", "", "Purpose of the loan")
	_ = applyCmd.MarkFlagRequired("amount")

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List applications awaiting review",
		RunE: a.authorized(staffRoles, func(cmd *cobra.Command, c *client.Client, args []string) error {
			apps, err := c.API.Loans.PendingApplications(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderApplications(apps)
		}),
	}

	var (
		review models.ReviewLoanRequest
		amount float64
		rate   float64
		tenure int
	)
	reviewCmd := &cobra.Command{
		Use:   "review <application-id>",
		Short: "Approve or reject a loan application",
		Args:  cobra.ExactArgs(1),
		RunE: a.authorized(staffRoles, func(cmd *cobra.Command, c *client.Client, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("amount") {
				review.ApprovedAmount = &amount
			}
			if flags.Changed("rate") {
				review.InterestRate = &rate
			}
			if flags.Changed("tenure") {
				review.TenureMonths = &tenure
			}

			result, err := c.API.Loans.Review(cmd.Context(), args[0], review)
			if err != nil {
				return err
			}
			a.printer.Success("Application %s %s", result.Application.ID, result.Application.Status)
			if handled, err := a.printer.Structured(result); handled || err != nil {
				return err
			}
			if result.Loan != nil {
				a.printer.Info("Loan %s issued, monthly EMI %s", result.Loan.LoanNumber, result.Loan.MonthlyEMI)
			}
			return nil
		}),
	}
	reviewCmd.Flags().StringVar(&review.Action, "action", "", "approve or reject")
	reviewCmd.Flags().StringVar(&review.Comments, "comments", "", "Review comments")
	reviewCmd.Flags().Float64Var(&amount, "amount", 0, "Approved amount (default: requested amount)")
	reviewCmd.Flags().Float64Var(&rate, "rate", 0, "Annual interest rate in percent")
	reviewCmd.Flags().IntVar(&tenure, "tenure", 0, "Tenure in months")
	_ = reviewCmd.MarkFlagRequired("action")

	var payFrom string
	payCmd := &cobra.Command{
		Use:   "pay <loan-id> <emi-id>",
		Short: "Pay one EMI installment",
		Args:  cobra.ExactArgs(2),
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			msg, err := c.API.Loans.PayEMI(cmd.Context(), args[0], args[1], payFrom)
			if err != nil {
				return err
			}
			a.printer.Success("%s", msg)
			return nil
		}),
	}
	payCmd.Flags().StringVar(&payFrom, "account", "", "Account to debit")
	_ = payCmd.MarkFlagRequired("account")

	cmd.AddCommand(listCmd, getCmd, applicationsCmd, applyCmd, pendingCmd, reviewCmd, payCmd)
	return cmd
}

func (a *app) renderLoans(loans []models.Loan) error {
	rows := make([][]string, 0, len(loans))
	for _, l := range loans {
		rows = append(rows, []string{
			l.ID, l.LoanNumber, l.LoanType, l.PrincipalAmount.String(), l.MonthlyEMI.String(),
			l.AmountRemaining.String(), l.Status,
		})
	}
	return a.render(loans, []string{"ID", "NUMBER", "TYPE", "PRINCIPAL", "EMI", "REMAINING", "STATUS"}, rows)
}

func (a *app) renderLoanDetail(detail *api.LoanDetail) error {
	rows := make([][]string, 0, len(detail.EMISchedules))
	for _, e := range detail.EMISchedules {
		paid := "no"
		if e.IsPaid {
			paid = "yes"
		}
		rows = append(rows, []string{
			e.ID, strconv.Itoa(e.InstallmentNumber), e.DueDate, e.TotalAmount.String(), paid,
		})
	}
	if handled, err := a.printer.Structured(detail); handled || err != nil {
		return err
	}
	if detail.Loan != nil {
		a.printer.Info("Loan %s: %s remaining of %s", detail.Loan.LoanNumber,
			detail.Loan.AmountRemaining, detail.Loan.PrincipalAmount)
	}
	a.printer.Table([]string{"EMI ID", "#", "DUE", "AMOUNT", "PAID"}, rows)
	return nil
}

func (a *app) renderApplications(apps []models.LoanApplication) error {
	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, []string{
			app.ID, app.LoanType, app.RequestedAmount.String(), app.Status, app.Purpose, app.SubmittedAt,
		})
	}
	return a.render(apps, []string{"ID", "TYPE", "AMOUNT", "STATUS", "PURPOSE", "SUBMITTED"}, rows)
}

func (a *app) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read notifications",
	}

	var (
		unread        bool
		limit, offset int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			items, err := c.API.Notifications.List(cmd.Context(), limit, offset, unread)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(items))
			for _, n := range items {
				read := " "
				if !n.IsRead {
					read = "*"
				}
				rows = append(rows, []string{read, n.ID, n.Type, n.Title, n.CreatedAt})
			}
			return a.render(items, []string{"", "ID", "TYPE", "TITLE", "CREATED"}, rows)
		}),
	}
	listCmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of notifications")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of notifications to skip")

	readCmd := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			n, err := c.API.Notifications.MarkRead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printer.Success("Marked %q as read", n.Title)
			return nil
		}),
	}

	readAllCmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			msg, err := c.API.Notifications.MarkAllRead(cmd.Context())
			if err != nil {
				return err
			}
			a.printer.Success("%s", msg)
			return nil
		}),
	}

	cmd.AddCommand(listCmd, readCmd, readAllCmd)
	return cmd
}

func (a *app) analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show the dashboard for your role",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			ctx := cmd.Context()
			switch role := c.Session.User().Role; role {
			case models.RoleAdmin:
				stats, err := c.API.Analytics.Admin(ctx)
				if err != nil {
					return err
				}
				return a.render(stats, []string{"CUSTOMERS", "STATUS", "UPTIME"}, [][]string{{
					strconv.Itoa(stats.TotalCustomers), stats.SystemHealth.Status,
					fmt.Sprintf("%ds", stats.SystemHealth.Uptime),
				}})
			case models.RoleBanker:
				stats, err := c.API.Analytics.Banker(ctx)
				if err != nil {
					return err
				}
				return a.render(stats, []string{"PENDING", "CUSTOMERS"}, [][]string{{
					strconv.Itoa(stats.PendingApplications), strconv.Itoa(stats.TotalCustomers),
				}})
			default:
				stats, err := c.API.Analytics.Customer(ctx)
				if err != nil {
					return err
				}
				return a.render(stats, []string{"ACCOUNTS", "BALANCE", "ACTIVE LOANS", "REMAINING", "NET"}, [][]string{{
					strconv.Itoa(stats.Accounts.Total), stats.Accounts.TotalBalance.String(),
					strconv.Itoa(stats.Loans.Active), stats.Loans.Remaining.String(),
					stats.Transactions.Net.String(),
				}})
			}
		}),
	}
}
