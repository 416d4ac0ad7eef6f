package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, PriorityHigh.Rank())
	assert.Equal(t, 1, PriorityMedium.Rank())
	assert.Equal(t, 2, PriorityLow.Rank())
	assert.Equal(t, 1, Priority("urgent").Rank(), "unrecognized ranks as medium")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "—", FormatPrice(nil))
	v := 2500.0
	assert.Equal(t, "¥2,500", FormatPrice(&v))
	v = 12345678.0
	assert.Equal(t, "¥12,345,678", FormatPrice(&v))
}

func TestTriggerMessage(t *testing.T) {
	target, current := 3200.0, 3100.0
	e := &WatchEntry{Name: "ソニーグループ", TargetPrice: &target, CurrentPrice: &current}
	assert.Equal(t, "現在価格 ¥3,100 が目標 ¥3,200 以下です！", TriggerMessage(e))
}

func TestWatchEntryJSONFieldNames(t *testing.T) {
	target := 2500.0
	e := WatchEntry{ID: "x", Name: "トヨタ自動車", Code: "7203", TargetPrice: &target, Priority: PriorityHigh}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "name", "code", "targetPrice", "priority", "addedAt", "updatedAt"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "currentPrice", "absent price is omitted")
}

func TestClone_IsolatesPricePointers(t *testing.T) {
	target := 2500.0
	e := WatchEntry{Name: "トヨタ", TargetPrice: &target}
	c := e.Clone()
	*c.TargetPrice = 9999
	assert.Equal(t, 2500.0, *e.TargetPrice)
}
