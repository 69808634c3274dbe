package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/instantcurrency/rates/cache/memory"
	"github.com/instantcurrency/rates/storage/memory"
	"github.com/instantcurrency/rates/storage/types"
	"github.com/instantcurrency/rates/subscription"
)

const checkoutPayload = `{
  "type": "checkout.session.completed",
  "created": 1735833600,
  "data": {
    "object": {
      "customer": "cus_RNopQrStUvWxYz",
      "customer_details": {"email": "ada@example.com"},
      "line_items": {
        "data": [
          {
            "description": "Instant Currency Pro",
            "amount_total": 4900,
            "price": {"product": "prod_currency_pro"}
          }
        ]
      }
    }
  }
}`

func webhookServer(t *testing.T) (*Server, *memory.SubscriptionStore) {
	t.Helper()

	store := memory.NewSubscriptionStore()

	s := &Server{
		logger:        noopLogger,
		subscriptions: subscription.NewService(store, cachememory.NewCache()),
	}

	return s, store
}

func TestHandlers_CheckoutWebhook(t *testing.T) {
	t.Parallel()

	t.Run("checkout completed", func(t *testing.T) {
		t.Parallel()

		s, store := webhookServer(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/checkout", strings.NewReader(checkoutPayload))
		w := httptest.NewRecorder()
		s.CheckoutWebhook(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		record, found, err := store.ProductSubscription(context.Background(), "ada@example.com", "prod_currency_pro")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, types.SubscriptionActive, record.Status)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()

		s, _ := webhookServer(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/checkout", strings.NewReader(`{"type": `))
		w := httptest.NewRecorder()
		s.CheckoutWebhook(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unrecognized event acknowledged", func(t *testing.T) {
		t.Parallel()

		s, store := webhookServer(t)

		payload := `{"type": "invoice.paid", "data": {"object": {"customer": "cus_123"}}}`

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/checkout", strings.NewReader(payload))
		w := httptest.NewRecorder()
		s.CheckoutWebhook(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		_, found, err := store.ProductSubscription(context.Background(), "cus_123", "")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
