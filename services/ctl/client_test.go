package ctl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sbomd/services/generations"
)

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1alpha3/sboms/generate/build/ARYT3LBXDVYAC" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(generations.GenerationRequest{
			ID:         "req-1",
			Identifier: "ARYT3LBXDVYAC",
			Type:       generations.RequestTypeBuild,
			Status:     generations.StatusNew,
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	req, err := client.Generate(context.Background(), "build", "ARYT3LBXDVYAC", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if req.ID != "req-1" || req.Status != generations.StatusNew {
		t.Fatalf("request = %+v", req)
	}
}

func TestClientDecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "resource not found",
			"errorId": "c1d2",
		})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	_, err := client.GetRequest(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetRequest() error = nil")
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T", err)
	}
	if apiErr.ErrorID != "c1d2" {
		t.Fatalf("ErrorID = %q", apiErr.ErrorID)
	}
}

func TestClientListRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "status==NEW" {
			t.Fatalf("query = %q", got)
		}
		if got := r.URL.Query().Get("pageSize"); got != "5" {
			t.Fatalf("pageSize = %q", got)
		}
		_, _ = w.Write([]byte(`{"pageIndex":0,"pageSize":5,"totalPages":1,"totalHits":1,"content":[{"id":"req-1"}]}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	page, err := client.ListRequests(context.Background(), ListOptions{Query: "status==NEW", PageSize: 5})
	if err != nil {
		t.Fatalf("ListRequests() error = %v", err)
	}
	if page.TotalHits != 1 || page.Content[0].ID != "req-1" {
		t.Fatalf("page = %+v", page)
	}
}
