package recurring

import (
	"sort"

	"fintrack/internal/core"
)

// Candidate is a projected, not yet persisted occurrence of a template.
type Candidate struct {
	core.Transaction
	TemplateID string `json:"templateId"`
}

// Upcoming is the next occurrence of a template after today.
type Upcoming struct {
	TemplateID  string                `json:"templateId"`
	Description string                `json:"description"`
	Amount      core.Money            `json:"amount"`
	Type        core.TransactionType  `json:"type"`
	Pattern     core.RecurringPattern `json:"pattern"`
	NextDue     core.Date             `json:"nextDue"`
}

// Stats summarizes the recurring templates of a log.
type Stats struct {
	Count                    int        `json:"count"`
	MonthlyExpenseEquivalent core.Money `json:"monthlyExpenseEquivalent"`
	MonthlyIncomeEquivalent  core.Money `json:"monthlyIncomeEquivalent"`
}

type occurrenceKey struct {
	categoryID  string
	date        string
	description string
	amount      string
}

func keyOf(categoryID string, date core.Date, description string, amount core.Money) occurrenceKey {
	return occurrenceKey{
		categoryID:  categoryID,
		date:        date.String(),
		description: description,
		amount:      amount.String(),
	}
}

// CandidateID is the deterministic identity of a template occurrence.
func CandidateID(templateID string, date core.Date) string {
	return templateID + "-" + date.String()
}

// Templates returns the recurring transactions of the log.
func Templates(txs []core.Transaction) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if t.IsRecurring {
			out = append(out, t)
		}
	}
	return out
}

// Project returns every occurrence of every template that falls after the
// template's own date and on or before today and that is not already in the
// log. The result depends only on its inputs: calling it twice yields the same
// candidates, and an occurrence stops being projected once it is recorded.
//
// Templates with an unknown pattern are skipped.
func Project(txs []core.Transaction, today core.Date) []Candidate {
	recorded := make(map[occurrenceKey]struct{}, len(txs))
	for _, t := range txs {
		recorded[keyOf(t.CategoryID, t.Date, t.Description, t.Amount)] = struct{}{}
	}

	var candidates []Candidate
	for _, tmpl := range Templates(txs) {
		adv, err := GetAdvancer(tmpl.RecurringPattern)
		if err != nil || tmpl.Date.IsZero() {
			continue
		}
		for cursor := adv.Next(tmpl.Date); !cursor.After(today); cursor = adv.Next(cursor) {
			if !cursor.After(tmpl.Date) {
				break
			}
			if _, ok := recorded[keyOf(tmpl.CategoryID, cursor, tmpl.Description, tmpl.Amount)]; ok {
				continue
			}
			candidates = append(candidates, newCandidate(tmpl, cursor))
		}
	}
	return candidates
}

func newCandidate(tmpl core.Transaction, date core.Date) Candidate {
	return Candidate{
		Transaction: core.Transaction{
			ID:          CandidateID(tmpl.ID, date),
			CategoryID:  tmpl.CategoryID,
			Amount:      tmpl.Amount,
			Description: tmpl.Description,
			Date:        date,
			Type:        tmpl.Type,
			IsRecurring: false,
		},
		TemplateID: tmpl.ID,
	}
}

// FindCandidate returns the projected candidate with the given id.
func FindCandidate(txs []core.Transaction, today core.Date, id string) (Candidate, bool) {
	for _, c := range Project(txs, today) {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// NextDueDate advances last by a single period of pattern.
func NextDueDate(last core.Date, pattern core.RecurringPattern) (core.Date, error) {
	adv, err := GetAdvancer(pattern)
	if err != nil {
		return core.Date{}, err
	}
	return adv.Next(last), nil
}

// UpcomingAfter lists, for each template, its first occurrence strictly after
// today, soonest first.
func UpcomingAfter(txs []core.Transaction, today core.Date) []Upcoming {
	var out []Upcoming
	for _, tmpl := range Templates(txs) {
		adv, err := GetAdvancer(tmpl.RecurringPattern)
		if err != nil || tmpl.Date.IsZero() {
			continue
		}
		next := adv.Next(tmpl.Date)
		for !next.After(today) && next.After(tmpl.Date) {
			next = adv.Next(next)
		}
		out = append(out, Upcoming{
			TemplateID:  tmpl.ID,
			Description: tmpl.Description,
			Amount:      tmpl.Amount,
			Type:        tmpl.Type,
			Pattern:     tmpl.RecurringPattern,
			NextDue:     next,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextDue.Before(out[j].NextDue) })
	return out
}

// ComputeStats counts templates and sums their monthly equivalents by type.
func ComputeStats(txs []core.Transaction) Stats {
	s := Stats{MonthlyExpenseEquivalent: core.Zero, MonthlyIncomeEquivalent: core.Zero}
	for _, tmpl := range Templates(txs) {
		s.Count++
		adv, err := GetAdvancer(tmpl.RecurringPattern)
		if err != nil {
			continue
		}
		monthly := adv.PerMonth(tmpl.Amount)
		switch tmpl.Type {
		case core.Expense:
			s.MonthlyExpenseEquivalent = s.MonthlyExpenseEquivalent.Add(monthly)
		case core.Income:
			s.MonthlyIncomeEquivalent = s.MonthlyIncomeEquivalent.Add(monthly)
		}
	}
	return s
}
