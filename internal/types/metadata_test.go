package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataScan(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"invoice_id":"inv_1"}`)))
	assert.Equal(t, "inv_1", m["invoice_id"])

	var fromString Metadata
	require.NoError(t, fromString.Scan(`{"k":"v"}`))
	assert.Equal(t, "v", fromString["k"])

	var fromNull Metadata
	require.NoError(t, fromNull.Scan(nil))
	require.NotNil(t, fromNull)
	assert.Len(t, fromNull, 0)

	var bad Metadata
	assert.Error(t, bad.Scan(42))
}

func TestMetadataValue(t *testing.T) {
	var nilMap Metadata
	v, err := nilMap.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(v.([]byte)))

	v, err = Metadata{"a": "b"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(v.([]byte)))
}
