package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionedEventSubject(t *testing.T) {
	event := &ProvisionedEvent{Address: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"}
	assert.Equal(t, "wallets.9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", event.Subject())
}

func TestProvisionedEventJSON(t *testing.T) {
	t.Run("unfunded wallet omits funding fields", func(t *testing.T) {
		event := &ProvisionedEvent{
			Address:   "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		data, err := json.Marshal(event)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"address": "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			"created_at": "2025-01-02T03:04:05Z"
		}`, string(data))
	})

	t.Run("funded wallet", func(t *testing.T) {
		event := &ProvisionedEvent{
			Address:   "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			FundedBy:  "So11111111111111111111111111111111111111112",
			Amount:    5_000_000,
			Signature: "sig",
			Network:   "devnet",
			CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		data, err := json.Marshal(event)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, float64(5_000_000), decoded["amount"])
		assert.Equal(t, "sig", decoded["signature"])
		assert.NotContains(t, decoded, "token_mint")
	})
}

func TestMockPublisher(t *testing.T) {
	ctx := context.Background()
	m := NewMockPublisher()

	require.NoError(t, m.PublishProvisioned(ctx, &ProvisionedEvent{Address: "a"}))
	assert.Len(t, m.GetPublishedEvents(), 1)

	m.SetPublishError(errors.New("nats down"))
	assert.Error(t, m.PublishProvisioned(ctx, &ProvisionedEvent{Address: "b"}))
	assert.Len(t, m.GetPublishedEvents(), 1)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
