package trello

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		APIKey:   "key",
		APIToken: "token",
		ListID:   "list-1",
	}, zap.NewNop())
	require.NoError(t, err)
	client.baseURL = server.URL
	return client, server
}

func testInvoice() *domain.ExtractedInvoice {
	invoiceDate, _ := domain.ParseDateOnly("2026-01-10")
	dueDate, _ := domain.ParseDateOnly("2026-01-24")
	payer := "Acme Sp. z o.o."
	gross := "1230,00"
	return &domain.ExtractedInvoice{
		DocumentType:  domain.DocumentTypeStandardInvoice,
		InvoiceNumber: "FV/1/2026",
		InvoiceDate:   &invoiceDate,
		DueDate:       &dueDate,
		Payer:         &payer,
		GrossAmount:   &gross,
	}
}

func TestCreateCard(t *testing.T) {
	var gotName, gotDesc, gotList string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cards", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotName = r.Form.Get("name")
		gotDesc = r.Form.Get("desc")
		gotList = r.Form.Get("idList")
		json.NewEncoder(w).Encode(map[string]string{"id": "card-42", "url": "https://trello.com/c/42"})
	}))

	cardID, err := client.CreateCard(context.Background(), testInvoice(), "https://drive.example/file")

	require.NoError(t, err)
	assert.Equal(t, "card-42", cardID)
	assert.Equal(t, "list-1", gotList)
	assert.Equal(t, "Оплатити до: 2026-01-24", gotName)
	assert.True(t, strings.Contains(gotDesc, "Номер фактури: FV/1/2026"))
	assert.True(t, strings.Contains(gotDesc, "Платник: Acme Sp. z o.o."))
	assert.True(t, strings.Contains(gotDesc, "Посилання на Google Drive: https://drive.example/file"))
}

func TestCreateCardServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.CreateCard(context.Background(), testInvoice(), "")
	require.Error(t, err)
}

func TestDeleteCard(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/cards/card-42", r.URL.Path)
		w.Write([]byte("{}"))
	}))

	require.NoError(t, client.DeleteCard(context.Background(), "card-42"))
}

func TestDeleteCardNotFoundIsSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	require.NoError(t, client.DeleteCard(context.Background(), "gone"))
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(&Config{APIKey: "key"}, zap.NewNop())
	require.Error(t, err)
}
