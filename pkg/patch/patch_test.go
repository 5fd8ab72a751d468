package patch

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title  Field[string]          `json:"title"`
	Amount Field[decimal.Decimal] `json:"amount"`
}

func TestOmittedKeyIsUnset(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))

	assert.False(t, p.Title.Set)
	assert.False(t, p.Title.Valid)
}

func TestNullKeyIsSetButInvalid(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"title": null}`), &p))

	assert.True(t, p.Title.Set)
	assert.False(t, p.Title.Valid)
}

func TestValueKeyIsSetAndValid(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"title": "coffee", "amount": 12.5}`), &p))

	assert.True(t, p.Title.Set)
	assert.True(t, p.Title.Valid)
	assert.Equal(t, "coffee", p.Title.Value)

	assert.True(t, p.Amount.Set)
	assert.True(t, p.Amount.Valid)
	assert.True(t, p.Amount.Value.Equal(decimal.RequireFromString("12.5")))
}

func TestAllThreeStatesInOneBody(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"title": null, "amount": 3}`), &p))

	assert.True(t, p.Title.Set)
	assert.False(t, p.Title.Valid)
	assert.True(t, p.Amount.Set)
	assert.True(t, p.Amount.Valid)
}

func TestUnmarshalTypeError(t *testing.T) {
	var p payload
	err := json.Unmarshal([]byte(`{"title": 42}`), &p)
	assert.Error(t, err)
}

func TestConstructors(t *testing.T) {
	set := Of("hello")
	assert.True(t, set.Set)
	assert.True(t, set.Valid)
	assert.Equal(t, "hello", set.Value)

	null := Null[string]()
	assert.True(t, null.Set)
	assert.False(t, null.Valid)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := json.Marshal(Of("x"))
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(out))

	out, err = json.Marshal(Null[string]())
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))
}
