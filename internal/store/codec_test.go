package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestEncodeNilAsEmptyArray(t *testing.T) {
	raw, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	bills, err := Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, bills)
	assert.NotNil(t, bills)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"empty":        "   ",
		"truncated":    `[{"id":1`,
		"null":         `null`,
		"object":       `{"id":1}`,
		"bad type":     `[{"id":1,"type":"gift","amount":1,"category":"x","timestamp":1}]`,
		"zero id":      `[{"id":0,"type":"income","amount":1,"category":"x","timestamp":1}]`,
		"duplicate id": `[{"id":3,"type":"income","amount":1,"category":"x","timestamp":1},{"id":3,"type":"expense","amount":2,"category":"y","timestamp":2}]`,
		"negative":     `[{"id":1,"type":"income","amount":-1,"category":"x","timestamp":1}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestDecodeKeepsOrder(t *testing.T) {
	in := []core.Bill{
		{ID: 9, Type: core.Expense, Amount: core.Cents(2550), Category: "餐饮", Remark: "午饭", Timestamp: 20},
		{ID: 2, Type: core.Income, Amount: core.Cents(500000), Category: "工资", Timestamp: 10},
	}
	raw, err := Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":25.50`)

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "ledger_data_v1", Key)
	assert.Equal(t, "ledger_data_v1.corrupt", CorruptKey(Key))
	assert.Equal(t, "ledger_data_v1.corrupt", CorruptKeyN(Key, 1))
	assert.Equal(t, "ledger_data_v1.corrupt.3", CorruptKeyN(Key, 3))
}
