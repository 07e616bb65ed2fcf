package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSnapshotEmptyCart(t *testing.T) {
	t.Parallel()

	raw, err := EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestEncodeSnapshotFieldNames(t *testing.T) {
	t.Parallel()

	raw, err := EncodeSnapshot([]LineItem{{ID: "1", Title: "Tee", ImageURL: "http://img/1", Price: 9.5, Quantity: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","title":"Tee","image_url":"http://img/1","price":9.5,"quantity":2}]`, raw)
}

func TestSnapshotRoundTripKeepsOrder(t *testing.T) {
	t.Parallel()

	items := []LineItem{
		{ID: "b", Title: "Bag", Price: 30, Quantity: 1},
		{ID: "a", Title: "Cap", ImageURL: "x", Price: 12.99, Quantity: 4},
	}
	raw, err := EncodeSnapshot(items)
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestDecodeSnapshotBlankIsEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "null", "[]"} {
		items, err := DecodeSnapshot(raw)
		require.NoError(t, err, raw)
		assert.NotNil(t, items, raw)
		assert.Empty(t, items, raw)
	}
}

func TestDecodeSnapshotRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed":     `[{"id":`,
		"not an array":  `{"id":"a"}`,
		"missing id":    `[{"title":"x","quantity":1}]`,
		"duplicate id":  `[{"id":"a","quantity":1},{"id":"a","quantity":2}]`,
		"zero quantity": `[{"id":"a","quantity":0}]`,
	}
	for name, raw := range cases {
		_, err := DecodeSnapshot(raw)
		assert.Error(t, err, name)
	}
}
