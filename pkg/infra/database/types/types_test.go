package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDArray_ValueScan(t *testing.T) {
	in := UUIDArray{uuid.New(), uuid.New()}
	v, err := in.Value()
	require.NoError(t, err)

	var out UUIDArray
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)
}

func TestUUIDArray_Empty(t *testing.T) {
	v, err := UUIDArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestUUIDArray_ScanInvalid(t *testing.T) {
	var out UUIDArray
	assert.Error(t, out.Scan([]byte("{not-a-uuid}")))
}
