// Package interchange reads and writes the backup document format: a single
// JSON object holding both collections, with dates as ISO-8601 strings.
// Import is all-or-nothing; a document that fails validation is rejected
// whole and no state changes.
package interchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"fintrack/internal/core"
)

// Document is the wire shape of an exported backup.
type Document struct {
	Transactions []core.Transaction `json:"transactions"`
	Investments  []core.Investment  `json:"investments"`
}

var (
	ErrMissingTransactionsKey = errors.New(`document is missing the "transactions" key`)
	ErrMissingInvestmentsKey  = errors.New(`document is missing the "investments" key`)
)

// Export renders both collections as an indented JSON document.
func Export(txs []core.Transaction, invs []core.Investment) ([]byte, error) {
	doc := Document{Transactions: txs, Investments: invs}
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	if doc.Investments == nil {
		doc.Investments = []core.Investment{}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return out, nil
}

// legacyInstallment matches the " (i/N)" description suffix written by
// clients that predate the explicit installment fields.
var legacyInstallment = regexp.MustCompile(`\s\((\d+)/(\d+)\)$`)

// Import parses and validates a backup document. Both top-level keys must be
// present (an empty list is fine, absence is not), every date must parse,
// and every record must satisfy domain validation. Errors describe the
// offending record; nothing is returned on failure.
func Import(data []byte) ([]core.Transaction, []core.Investment, error) {
	// Distinguish "key absent" from "key empty" before decoding into the
	// typed document.
	var probe map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&probe); err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}
	if _, ok := probe["transactions"]; !ok {
		return nil, nil, ErrMissingTransactionsKey
	}
	if _, ok := probe["investments"]; !ok {
		return nil, nil, ErrMissingInvestmentsKey
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}

	for i := range doc.Transactions {
		doc.Transactions[i] = upgradeLegacyInstallment(doc.Transactions[i])
		if err := doc.Transactions[i].Validate(); err != nil {
			return nil, nil, fmt.Errorf("transaction %d (%q): %w", i, doc.Transactions[i].Description, err)
		}
	}
	for i := range doc.Investments {
		if err := doc.Investments[i].Validate(); err != nil {
			return nil, nil, fmt.Errorf("investment %d (%q): %w", i, doc.Investments[i].Name, err)
		}
	}
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	if doc.Investments == nil {
		doc.Investments = []core.Investment{}
	}
	return doc.Transactions, doc.Investments, nil
}

// upgradeLegacyInstallment backfills the explicit installment fields from
// the description suffix for documents written before those fields existed.
// The suffix itself is preserved so re-exports stay byte-compatible.
func upgradeLegacyInstallment(tx core.Transaction) core.Transaction {
	if !tx.IsInstallment() || tx.InstallmentCount != 0 {
		return tx
	}
	m := legacyInstallment.FindStringSubmatch(tx.Description)
	if m == nil {
		return tx
	}
	idx, err1 := strconv.Atoi(m[1])
	count, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || idx < 1 || count < idx {
		return tx
	}
	tx.InstallmentIndex = idx
	tx.InstallmentCount = count
	return tx
}
