// Package ofx turns OFX/QFX bank and credit card statements into bill drafts.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/log"
)

// ErrNoTransactions is returned when a statement parses but holds nothing to
// import.
var ErrNoTransactions = errors.New("no transactions in statement")

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)

	merchantPrefixes = []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
)

// Options configures an Importer. Empty categories fall back to
// core.CategoryOther.
type Options struct {
	ExpenseCategory string
	IncomeCategory  string
	Logger          *log.Logger
}

// Importer converts statement transactions into bills without ids.
type Importer struct {
	expenseCategory string
	incomeCategory  string
	logger          *log.Logger
}

func NewImporter(opts Options) *Importer {
	if opts.ExpenseCategory == "" {
		opts.ExpenseCategory = core.CategoryOther
	}
	if opts.IncomeCategory == "" {
		opts.IncomeCategory = core.CategoryOther
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &Importer{
		expenseCategory: opts.ExpenseCategory,
		incomeCategory:  opts.IncomeCategory,
		logger:          opts.Logger.WithComponent(log.ComponentImport),
	}
}

// Parse reads one statement file. Negative amounts become expenses, positive
// ones income; zero amounts, undated entries and repeated FITIDs are skipped.
func (i *Importer) Parse(ctx context.Context, r io.Reader) ([]core.Bill, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}

	var txns []ofxgo.Transaction
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			txns = append(txns, stmt.BankTranList.Transactions...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			txns = append(txns, stmt.BankTranList.Transactions...)
		}
	}

	seen := make(map[string]struct{}, len(txns))
	bills := make([]core.Bill, 0, len(txns))
	skipped := 0
	for _, tx := range txns {
		if id := string(tx.FiTID); id != "" {
			if _, dup := seen[id]; dup {
				skipped++
				continue
			}
			seen[id] = struct{}{}
		}
		b, ok := i.convert(tx)
		if !ok {
			skipped++
			continue
		}
		bills = append(bills, b)
	}

	i.logger.InfoContext(ctx, "Parsed statement",
		log.FieldCount, len(bills),
		"skipped", skipped,
		log.FieldOperation, log.OpParse)

	if len(bills) == 0 {
		return nil, ErrNoTransactions
	}
	return bills, nil
}

func (i *Importer) convert(tx ofxgo.Transaction) (core.Bill, bool) {
	if tx.DtPosted.IsZero() {
		i.logger.Warn("Skipping transaction without posting date", "fitid", string(tx.FiTID))
		return core.Bill{}, false
	}

	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil || amount.IsZero() {
		return core.Bill{}, false
	}

	b := core.Bill{
		Type:      core.Expense,
		Category:  i.expenseCategory,
		Remark:    truncate(merchantName(tx), core.MaxRemarkLength),
		Timestamp: tx.DtPosted.Time.UnixMilli(),
	}
	if amount.IsPositive() {
		b.Type = core.Income
		b.Category = i.incomeCategory
	}
	money, err := core.MoneyFromDecimal(amount.Abs())
	if err != nil {
		return core.Bill{}, false
	}
	b.Amount = money
	return b, true
}

// preprocess fixes common formatting issues in exported OFX files.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// merchantName prefers PAYEE, then NAME, then MEMO, and strips card prefixes.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if name == "" {
		name = strings.TrimSpace(string(tx.Memo))
	}
	upper := strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}
	return name
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
