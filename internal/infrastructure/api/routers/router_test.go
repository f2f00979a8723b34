package routers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mufasadev/transaction-webhooks/internal/di"
	"github.com/mufasadev/transaction-webhooks/internal/domain/events"
	dbrepositories "github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/interactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const txn1 = `{"transaction_id":"txn_1","source_account":"A","destination_account":"B","amount":10.5,"currency":"USD"}`

func newTestServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	container := di.NewContainer(
		dbrepositories.NewTransactionMemoryRepository(),
		events.NopPublisher{},
		di.Settings{
			Processor:     interactor.NewSimulatedProcessor(delay),
			MaxConcurrent: 4,
			StaleAfter:    time.Minute,
		},
	)
	srv := httptest.NewServer(NewRouter(container))
	t.Cleanup(func() {
		srv.Close()
		container.Pool.Shutdown(context.Background())
	})
	return srv
}

func post(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/webhooks/transactions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, decode(t, resp)
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	d := json.NewDecoder(resp.Body)
	d.UseNumber()
	require.NoError(t, d.Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, time.Millisecond)

	resp, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "HEALTHY", body["status"])

	ts, ok := body["current_time"].(string)
	require.True(t, ok)
	_, err := time.Parse("2006-01-02T15:04:05.000000Z", ts)
	assert.NoError(t, err)
}

func TestReceiveWebhook(t *testing.T) {
	t.Run("accepted with empty body", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := post(t, srv, txn1)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Empty(t, body)
	})

	t.Run("duplicate delivery is accepted too", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, _ := post(t, srv, txn1)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp, _ = post(t, srv, `{"transaction_id":"txn_1","source_account":"Z","destination_account":"B","amount":1,"currency":"EUR"}`)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		_, body := get(t, srv, "/v1/transactions/txn_1")
		assert.Equal(t, "A", body["source_account"])
		assert.Equal(t, "USD", body["currency"])
	})

	t.Run("missing field is rejected", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := post(t, srv, `{"transaction_id":"txn_1","source_account":"A","destination_account":"B","amount":10.5}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		detail, ok := body["detail"].([]interface{})
		require.True(t, ok)
		require.Len(t, detail, 1)
		item := detail[0].(map[string]interface{})
		assert.Equal(t, []interface{}{"body", "currency"}, item["loc"])
		assert.Equal(t, "value_error.missing", item["type"])
		assert.NotEmpty(t, item["msg"])

		resp, _ = get(t, srv, "/v1/transactions/txn_1")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("wrong amount type is rejected", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := post(t, srv, `{"transaction_id":"txn_1","source_account":"A","destination_account":"B","amount":"lots","currency":"USD"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		detail := body["detail"].([]interface{})
		assert.Equal(t, []interface{}{"body", "amount"}, detail[0].(map[string]interface{})["loc"])
	})

	t.Run("empty currency is accepted", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := post(t, srv, `{"transaction_id":"t2","source_account":"A","destination_account":"B","amount":1,"currency":""}`)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Empty(t, body)

		resp, body = get(t, srv, "/v1/transactions/t2")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "", body["currency"])
	})

	t.Run("huge exponent amount is rejected", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := post(t, srv, `{"transaction_id":"t3","source_account":"A","destination_account":"B","amount":1e100000000,"currency":"USD"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		detail := body["detail"].([]interface{})
		assert.Equal(t, []interface{}{"body", "amount"}, detail[0].(map[string]interface{})["loc"])
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := post(t, srv, `{"transaction_id":`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		detail := body["detail"].([]interface{})
		assert.Equal(t, []interface{}{"body"}, detail[0].(map[string]interface{})["loc"])
	})
}

func TestGetTransaction(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		srv := newTestServer(t, time.Hour)

		resp, body := get(t, srv, "/v1/transactions/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, map[string]interface{}{"detail": "transaction not found"}, body)
	})

	t.Run("pending then processed", func(t *testing.T) {
		srv := newTestServer(t, 100*time.Millisecond)

		resp, _ := post(t, srv, txn1)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		resp, body := get(t, srv, "/v1/transactions/txn_1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "txn_1", body["transaction_id"])
		assert.Equal(t, "A", body["source_account"])
		assert.Equal(t, "B", body["destination_account"])
		assert.Equal(t, json.Number("10.5"), body["amount"])
		assert.Equal(t, "USD", body["currency"])
		assert.Equal(t, "PROCESSING", body["status"])
		assert.NotEmpty(t, body["created_at"])
		assert.Nil(t, body["processed_at"])

		assert.Eventually(t, func() bool {
			_, body := get(t, srv, "/v1/transactions/txn_1")
			return body["status"] == "PROCESSED" && body["processed_at"] != nil
		}, 3*time.Second, 20*time.Millisecond)

		_, body = get(t, srv, "/v1/transactions/txn_1")
		createdAt, err := time.Parse("2006-01-02T15:04:05.000000Z", body["created_at"].(string))
		require.NoError(t, err)
		processedAt, err := time.Parse("2006-01-02T15:04:05.000000Z", body["processed_at"].(string))
		require.NoError(t, err)
		assert.False(t, processedAt.Before(createdAt))
		assert.Equal(t, json.Number("1"), body["attempts"])
		assert.Nil(t, body["last_error"])
	})

	t.Run("redelivery after processing changes nothing", func(t *testing.T) {
		srv := newTestServer(t, 10*time.Millisecond)

		post(t, srv, txn1)
		assert.Eventually(t, func() bool {
			_, body := get(t, srv, "/v1/transactions/txn_1")
			return body["status"] == "PROCESSED"
		}, 3*time.Second, 10*time.Millisecond)
		_, before := get(t, srv, "/v1/transactions/txn_1")

		resp, _ := post(t, srv, txn1)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		time.Sleep(50 * time.Millisecond)

		_, after := get(t, srv, "/v1/transactions/txn_1")
		assert.Equal(t, before, after)
	})
}
