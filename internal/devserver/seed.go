package devserver

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// DemoUsers are seeded on start, keyed by username.
var DemoUsers = map[string]string{
	"alice": models.RoleCustomer,
	"bob":   models.RoleBanker,
	"carol": models.RoleAdmin,
}

var merchantCategories = []string{"Groceries", "Utilities", "Dining", "Fuel", "Subscriptions", "Travel"}

// seed populates the repository with demo users and, for customers,
// accounts, transaction history, a pending loan application and a few
// notifications. The same seed always produces the same data.
func seed(r *repository, seedValue int64) error {
	faker := gofakeit.New(seedValue)

	for _, username := range []string{"alice", "bob", "carol"} {
		u, err := r.createUser(models.RegisterRequest{
			Username: username,
			Email:    username + "@finedge.dev",
			Password: DemoPassword,
			Role:     DemoUsers[username],
			FullName: faker.Name(),
			Phone:    faker.Phone(),
			Address:  faker.Street(),
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", username, err)
		}
		if u.Role == models.RoleCustomer {
			seedCustomer(r, faker, u)
		}
	}
	return nil
}

func seedCustomer(r *repository, faker *gofakeit.Faker, u *user) {
	r.mu.Lock()
	defer r.mu.Unlock()

	checking := r.openAccount(u.ID, models.AccountChecking, "Everyday Checking", "USD")
	savings := r.openAccount(u.ID, models.AccountSavings, "Rainy Day Savings", "USD")
	savings.view.InterestRate = "2.50"

	checking.balance = cents(faker.Price(1500, 5000))
	savings.balance = cents(faker.Price(2000, 15000))

	start := r.now().AddDate(0, 0, -30)
	for i := 0; i < 12; i++ {
		amount := cents(faker.Price(5, 250))
		kind := faker.RandomString([]string{models.TxnDeposit, models.TxnWithdrawal, models.TxnPayment})
		description := faker.Company()
		if kind == models.TxnDeposit {
			description = "Payroll - " + description
		} else {
			description = faker.RandomString(merchantCategories) + " - " + description
			if checking.balance < amount {
				kind, description = models.TxnDeposit, "Transfer in"
			}
		}

		if kind == models.TxnDeposit {
			checking.balance += amount
		} else {
			checking.balance -= amount
		}

		t := r.record(checking, kind, amount, description, "")
		at := start.Add(time.Duration(i*60+faker.Number(0, 59)) * time.Hour)
		t.at = at
		t.view.CreatedAt = at.UTC().Format(time.RFC3339)
	}

	r.fileApplication(u.ID, "personal", cents(faker.Price(2000, 20000)), "Home renovation")

	r.notify(u.ID, "welcome", "Welcome to FinEdge", "Your accounts are ready to use.")
	r.notify(u.ID, "security", "New sign-in", "A new device signed in to your account.")
	r.notify(u.ID, "loan_application", "Application Submitted", "Your personal loan application was received.")
}

func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
