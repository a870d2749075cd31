// Package ofx turns OFX/QFX bank exports into ledger drafts.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/dompet/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// salaryWords mark a credit as salary rather than generic income.
var salaryWords = []string{"GAJI", "PAYROLL", "SALARY"}

// Entry is one statement line ready to be added to the ledger.
type Entry struct {
	FitID   string
	Account string
	Draft   model.Draft
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Mixed-case SEVERITY values are rejected by ofxgo.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML exports sometimes drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(ctx context.Context, reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns one entry per statement line.
// Zero-amount lines are skipped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Entry, error) {
	resp, err := p.parse(ctx, reader)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			entries = append(entries, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			entries = append(entries, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(entries),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return entries, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []Entry {
	if list == nil {
		return nil
	}

	entries := make([]Entry, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		entry, ok := p.convertTransaction(ofxTx, accountID)
		if !ok {
			slog.Warn("Skipping zero-amount OFX transaction", "fitid", string(ofxTx.FiTID), "account", accountID)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// convertTransaction maps an OFX line onto a draft. OFX signs amounts, so
// credits become income and debits become expenses.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (Entry, bool) {
	amountFloat, _ := ofxTx.TrnAmt.Float64()
	amount := int64(math.Round(math.Abs(amountFloat)))
	if amount == 0 {
		return Entry{}, false
	}

	name := p.extractMerchantName(ofxTx)
	draft := model.Draft{
		Date:   ofxTx.DtPosted.Time,
		Amount: amount,
		Notes:  name,
	}

	switch trnType := ofxTx.TrnType.String(); {
	case trnType == "INT" || trnType == "DIV":
		draft.Type, draft.Category = model.TypeIncome, "Investasi"
	case amountFloat > 0 && containsAny(name, salaryWords):
		draft.Type, draft.Category = model.TypeIncome, "Gaji"
	case amountFloat > 0:
		draft.Type, draft.Category = model.TypeIncome, model.CategoryOther
	case trnType == "FEE" || trnType == "SRVCHG":
		draft.Type, draft.Category = model.TypeExpense, "Tagihan"
	default:
		draft.Type, draft.Category = model.TypeExpense, model.CategoryOther
	}

	return Entry{
		FitID:   string(ofxTx.FiTID),
		Account: accountID,
		Draft:   draft,
	}, true
}

func containsAny(name string, words []string) bool {
	upper := strings.ToUpper(name)
	for _, w := range words {
		if strings.Contains(upper, w) {
			return true
		}
	}
	return false
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
		"TRSF E-BANKING DB ",
		"TRSF E-BANKING CR ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " posting date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Accounts extracts the distinct account IDs in the file.
func (p *Parser) Accounts(ctx context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(ctx, reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}
	return accounts, nil
}

// Dedupe drops entries that already exist in the ledger or repeat earlier
// in the batch. Two records match on date, type, amount and notes.
func Dedupe(entries []Entry, existing []model.Transaction) (fresh []Entry, skipped int) {
	seen := make(map[string]bool, len(existing)+len(entries))
	for _, txn := range existing {
		seen[dedupeKey(txn.Date, txn.Type, txn.Amount, txn.Notes)] = true
	}

	for _, e := range entries {
		key := dedupeKey(model.FormatDate(e.Draft.Date), e.Draft.Type, e.Draft.Amount, e.Draft.Notes)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		fresh = append(fresh, e)
	}
	return fresh, skipped
}

func dedupeKey(date string, typ model.TransactionType, amount int64, notes string) string {
	return fmt.Sprintf("%s|%s|%d|%s", date, typ, amount, strings.TrimSpace(notes))
}
