package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ledger/internal/core"
)

// Encode serializes bills as a JSON array. A nil slice encodes as [].
func Encode(bills []core.Bill) ([]byte, error) {
	if bills == nil {
		bills = []core.Bill{}
	}
	data, err := json.Marshal(bills)
	if err != nil {
		return nil, fmt.Errorf("encode bills: %w", err)
	}
	return data, nil
}

// Decode parses a blob written by Encode. Anything that is not a JSON array of
// valid bills with unique ids is reported as ErrCorrupt.
func Decode(data []byte) ([]core.Bill, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorrupt)
	}
	var bills []core.Bill
	if err := json.Unmarshal(data, &bills); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if bills == nil {
		return nil, fmt.Errorf("%w: not an array", ErrCorrupt)
	}
	seen := make(map[int64]struct{}, len(bills))
	for i, b := range bills {
		if err := b.ValidateStored(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorrupt, i, err)
		}
		if _, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrCorrupt, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return bills, nil
}
