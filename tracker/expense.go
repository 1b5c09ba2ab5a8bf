package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eapayk/quanlitien/store"
)

// Summary is the spending overview for the active user.
type Summary struct {
	MonthlyLimit int64 `json:"monthlyLimit"`
	TotalSpent   int64 `json:"totalSpent"`
	Remaining    int64 `json:"remaining"` // negative when over the limit
	ExpenseCount int   `json:"expenseCount"`
}

// Expenses returns a copy of the active user's expense list.
func (m *Manager) Expenses() ([]store.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(); err != nil {
		return nil, err
	}
	return append([]store.Expense(nil), m.current.Expenses...), nil
}

// AddExpense records a new expense. The amount is parsed from free-form
// input and must be positive; the category must exist in the user's list so
// no dangling reference can be written. The new id is one greater than the
// current maximum, or 1 for an empty list.
func (m *Manager) AddExpense(ctx context.Context, category, amountText, date string) (store.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return store.Expense{}, err
	}

	if category == "" || strings.TrimSpace(amountText) == "" || date == "" {
		return store.Expense{}, ErrMissingFields
	}

	amount := ParseMoneyFormat(amountText)
	if amount <= 0 {
		return store.Expense{}, ErrInvalidAmount
	}

	known := lo.SomeBy(m.current.Categories, func(c store.Category) bool {
		return c.ID == category
	})
	if !known {
		return store.Expense{}, ErrUnknownCategory
	}

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return store.Expense{}, ErrInvalidDate
	}

	expense := store.Expense{
		ID:       m.nextExpenseID(),
		Category: category,
		Amount:   amount,
		Date:     date,
	}
	m.current.Expenses = append(m.current.Expenses, expense)

	if err := m.save(ctx); err != nil {
		return store.Expense{}, err
	}
	return expense, nil
}

// nextExpenseID assigns max(existing)+1, or 1 for an empty list. Deleting
// the highest-id expense can reuse its id; ids only identify entries within
// a single user's list.
func (m *Manager) nextExpenseID() int64 {
	if len(m.current.Expenses) == 0 {
		return 1
	}
	highest := lo.MaxBy(m.current.Expenses, func(a, b store.Expense) bool {
		return a.ID > b.ID
	})
	return highest.ID + 1
}

// UpdateExpenseAmount changes an expense's amount in place.
func (m *Manager) UpdateExpenseAmount(ctx context.Context, id int64, amountText string) (store.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return store.Expense{}, err
	}

	amount := ParseMoneyFormat(amountText)
	if amount <= 0 {
		return store.Expense{}, ErrInvalidAmount
	}

	for i := range m.current.Expenses {
		if m.current.Expenses[i].ID == id {
			m.current.Expenses[i].Amount = amount
			if err := m.save(ctx); err != nil {
				return store.Expense{}, err
			}
			return m.current.Expenses[i], nil
		}
	}
	return store.Expense{}, ErrUnknownExpense
}

// DeleteExpense removes an expense by id.
func (m *Manager) DeleteExpense(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return err
	}

	before := len(m.current.Expenses)
	m.current.Expenses = lo.Reject(m.current.Expenses, func(e store.Expense, _ int) bool {
		return e.ID == id
	})
	if len(m.current.Expenses) == before {
		return ErrUnknownExpense
	}

	return m.save(ctx)
}

// SetMonthlyLimit updates the spending limit from free-form input. Empty
// input clears the limit to zero; so does unparseable input, mirroring how
// the limit field treats 0 as "clear" rather than invalid.
func (m *Manager) SetMonthlyLimit(ctx context.Context, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return 0, err
	}

	limit := int64(0)
	if strings.TrimSpace(text) != "" {
		limit = ParseMoneyFormat(text)
	}

	m.current.MonthlyLimit = limit
	if err := m.save(ctx); err != nil {
		return 0, err
	}
	return limit, nil
}

// Summarize computes the spending overview for the active user.
func (m *Manager) Summarize() (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return Summary{}, err
	}

	spent := lo.SumBy(m.current.Expenses, func(e store.Expense) int64 {
		return e.Amount
	})

	return Summary{
		MonthlyLimit: m.current.MonthlyLimit,
		TotalSpent:   spent,
		Remaining:    m.current.MonthlyLimit - spent,
		ExpenseCount: len(m.current.Expenses),
	}, nil
}
