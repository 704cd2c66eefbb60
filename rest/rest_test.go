package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
)

type testRequest struct {
	Name string `json:"name"`
}

type testResponse struct {
	Status string `json:"status"`
	Value  int    `json:"value"`
}

func TestPostSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testResponse{Status: "ok", Value: 42})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	result, err := Post[testResponse](context.Background(), client, "/test", nil, testRequest{Name: "test"})

	td.CmpNoError(t, err)
	td.Cmp(t, result, testResponse{Status: "ok", Value: 42})
}

func TestPostClientErrorWithJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code": "INVALID_REQUEST",
			"msg":  "Request validation failed",
			"data": map[string]string{"field": "name"},
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := Post[testResponse](context.Background(), client, "/test", nil, testRequest{Name: ""})

	td.Require(t).CmpError(err)
	clientErr, ok := err.(*ClientError)
	td.Require(t).Cmp(ok, true)
	td.Cmp(t, clientErr.StatusCode, http.StatusBadRequest)
	td.Cmp(t, clientErr.Code, "INVALID_REQUEST")
	td.Cmp(t, clientErr.Msg, "Request validation failed")
	td.CmpNotNil(t, clientErr.Data)
}

func TestPostClientErrorWithoutJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorized"))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := Post[testResponse](context.Background(), client, "/test", nil, testRequest{Name: "test"})

	clientErr, ok := err.(*ClientError)
	td.Require(t).Cmp(ok, true)
	td.Cmp(t, clientErr.StatusCode, http.StatusUnauthorized)
	td.Cmp(t, clientErr.Msg, "Unauthorized")
}

func TestPostServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := Post[testResponse](context.Background(), client, "/test", nil, testRequest{Name: "test"})

	serverErr, ok := err.(*ServerError)
	td.Require(t).Cmp(ok, true)
	td.Cmp(t, serverErr.StatusCode, http.StatusInternalServerError)
	td.Cmp(t, serverErr.Text, "Internal Server Error")
}

func TestPostWithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testResponse{Status: "ok", Value: 42})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	result, err := Post[testResponse](context.Background(), client, "/test", nil, testRequest{Name: "test"})

	td.CmpNoError(t, err)
	td.Cmp(t, result, testResponse{Status: "ok", Value: 42})
}
