package report

import (
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementEntryKind tells document lines from payment lines
type StatementEntryKind string

const (
	StatementEntryDocument StatementEntryKind = "document"
	StatementEntryPayment  StatementEntryKind = "payment"
)

// StatementLine is one row of a partner statement
type StatementLine struct {
	Date         time.Time          `json:"date"`
	Kind         StatementEntryKind `json:"kind"`
	DocumentID   uuid.UUID          `json:"document_id"`
	DocumentType trade.DocumentType `json:"document_type"`
	Number       string             `json:"number"`
	PaymentID    *uuid.UUID         `json:"payment_id,omitempty"`
	Amount       decimal.Decimal    `json:"amount"` // signed in the partner's natural direction
	Balance      decimal.Decimal    `json:"balance"`
}

// PartnerStatement is the running balance of a partner over a date range
type PartnerStatement struct {
	PartnerID      uuid.UUID           `json:"partner_id"`
	PartnerName    string              `json:"partner_name"`
	PartnerType    partner.PartnerType `json:"partner_type"`
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	ClosingBalance decimal.Decimal     `json:"closing_balance"`
	Lines          []StatementLine     `json:"lines"`
}

// BuildPartnerStatement replays the partner's balance documents and their
// payments oldest first. Entries dated before from are folded into the
// opening balance; entries on or after toExclusive are ignored. A document
// enters at its original settleable amount (remaining plus everything
// settled since) and each payment offsets it, so the closing balance of a
// statement that reaches the present equals the partner's current balance.
func BuildPartnerStatement(p *partner.Partner, docs []trade.Document, payments []trade.InvoicePayment, from, toExclusive time.Time) *PartnerStatement {
	orientation := p.Type.Orientation()

	byID := make(map[uuid.UUID]*trade.Document, len(docs))
	settled := make(map[uuid.UUID]decimal.Decimal, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}
	for i := range payments {
		if _, ok := byID[payments[i].DocumentID]; !ok {
			continue
		}
		settled[payments[i].DocumentID] = settled[payments[i].DocumentID].Add(payments[i].SettledAmount())
	}

	entries := make([]StatementLine, 0, len(docs)+len(payments))
	for i := range docs {
		doc := &docs[i]
		sign := doc.Type.PartnerSign().Mul(orientation)
		original := doc.RemainingAmount.Add(settled[doc.ID])
		entries = append(entries, StatementLine{
			Date:         doc.DocumentDate,
			Kind:         StatementEntryDocument,
			DocumentID:   doc.ID,
			DocumentType: doc.Type,
			Number:       doc.Number,
			Amount:       shared.RoundMoney(original.Mul(sign)),
		})
	}
	for i := range payments {
		pay := &payments[i]
		doc, ok := byID[pay.DocumentID]
		if !ok {
			continue
		}
		sign := doc.Type.PartnerSign().Mul(orientation).Neg()
		id := pay.ID
		entries = append(entries, StatementLine{
			Date:         pay.PaymentDate,
			Kind:         StatementEntryPayment,
			DocumentID:   doc.ID,
			DocumentType: doc.Type,
			Number:       doc.Number,
			PaymentID:    &id,
			Amount:       shared.RoundMoney(pay.SettledAmount().Mul(sign)),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		// a document precedes the payments made against it on the same day
		return entries[i].Kind == StatementEntryDocument && entries[j].Kind == StatementEntryPayment
	})

	st := &PartnerStatement{
		PartnerID:      p.ID,
		PartnerName:    p.Name,
		PartnerType:    p.Type,
		From:           from,
		To:             toExclusive.AddDate(0, 0, -1),
		OpeningBalance: p.OpeningBalance,
		Lines:          []StatementLine{},
	}
	running := p.OpeningBalance
	for _, e := range entries {
		if e.Date.Before(from) {
			running = running.Add(e.Amount)
			continue
		}
		if !e.Date.Before(toExclusive) {
			continue
		}
		if len(st.Lines) == 0 {
			st.OpeningBalance = running
		}
		running = running.Add(e.Amount)
		e.Balance = running
		st.Lines = append(st.Lines, e)
	}
	if len(st.Lines) == 0 {
		st.OpeningBalance = running
	}
	st.ClosingBalance = running
	return st
}
