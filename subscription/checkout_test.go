package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instantcurrency/rates/storage/types"
)

const checkoutPayload = `{
  "id": "evt_1QxYzAbCdEfGhIjK",
  "type": "checkout.session.completed",
  "created": 1735833600,
  "data": {
    "object": {
      "id": "cs_test_a1b2c3",
      "customer": "cus_RNopQrStUvWxYz",
      "customer_details": {
        "email": "ada@example.com",
        "name": "Ada Lovelace"
      },
      "line_items": {
        "data": [
          {
            "id": "li_1QxYzB",
            "description": "Instant Currency Pro",
            "amount_total": 4900,
            "price": {
              "id": "price_1QxYzC",
              "product": "prod_currency_pro"
            }
          }
        ]
      }
    }
  }
}`

const subscriptionDeletedPayload = `{
  "type": "customer.subscription.deleted",
  "created": 1736006400,
  "data": {
    "object": {
      "id": "sub_1QxYzD",
      "customer": "cus_RNopQrStUvWxYz",
      "status": "canceled",
      "metadata": {
        "email": "ada@example.com"
      },
      "items": {
        "data": [
          {"price": {"product": "prod_currency_pro"}}
        ]
      }
    }
  }
}`

func TestParseEventCheckoutCompleted(t *testing.T) {
	t.Parallel()

	event, err := ParseEvent([]byte(checkoutPayload))
	require.NoError(t, err)

	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "ada@example.com", event.Email)
	assert.Equal(t, "cus_RNopQrStUvWxYz", event.CustomerID)
	assert.Equal(t, time.Date(2025, 1, 2, 16, 0, 0, 0, time.UTC), event.Created)

	require.Len(t, event.LineItems, 1)
	assert.Equal(t, "prod_currency_pro", event.LineItems[0].ProductID)
	assert.Equal(t, "Instant Currency Pro", event.LineItems[0].Description)
	assert.Equal(t, int64(4900), event.LineItems[0].AmountTotal)
}

func TestParseEventSubscriptionDeleted(t *testing.T) {
	t.Parallel()

	event, err := ParseEvent([]byte(subscriptionDeletedPayload))
	require.NoError(t, err)

	assert.Equal(t, EventSubscriptionDeleted, event.Type)
	assert.Equal(t, "ada@example.com", event.Email)
	assert.Equal(t, types.SubscriptionCanceled, event.Status)

	require.Len(t, event.LineItems, 1)
	assert.Equal(t, "prod_currency_pro", event.LineItems[0].ProductID)
}

func TestParseEventPlanProductFallback(t *testing.T) {
	t.Parallel()

	payload := `{
	  "type": "customer.subscription.updated",
	  "data": {
	    "object": {
	      "customer": "cus_123",
	      "status": "active",
	      "metadata": {"email": "ada@example.com"},
	      "plan": {"product": "prod_legacy"}
	    }
	  }
	}`

	event, err := ParseEvent([]byte(payload))
	require.NoError(t, err)

	require.Len(t, event.LineItems, 1)
	assert.Equal(t, "prod_legacy", event.LineItems[0].ProductID)
	assert.Equal(t, types.SubscriptionActive, event.Status)
}

func TestParseEventUnrecognizedType(t *testing.T) {
	t.Parallel()

	payload := `{"type": "invoice.paid", "data": {"object": {"customer": "cus_123"}}}`

	event, err := ParseEvent([]byte(payload))
	require.NoError(t, err)

	assert.False(t, event.Recognized())
	assert.Equal(t, EventType("invoice.paid"), event.Type)
}

func TestParseEventMalformed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		payload string
	}{
		{name: "invalid json", payload: `{"type": `},
		{name: "missing type", payload: `{"data": {"object": {}}}`},
		{name: "missing data object", payload: `{"type": "checkout.session.completed"}`},
		{
			name:    "recognized event without email",
			payload: `{"type": "checkout.session.completed", "data": {"object": {"customer": "cus_123"}}}`,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseEvent([]byte(testCase.payload))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
