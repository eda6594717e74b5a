package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestItemPatchMarshalTriState(t *testing.T) {
	sectionID := "sec-1"

	cases := []struct {
		name  string
		patch ItemPatch
		want  string
	}{
		{"empty", ItemPatch{}, `{}`},
		{"text only", ItemPatch{Text: ptr("Jacke")}, `{"text":"Jacke"}`},
		{"section absent", ItemPatch{Position: ptr(2)}, `{"position":2}`},
		{"section set", ItemPatch{SectionID: ptr(&sectionID)}, `{"section_id":"sec-1"}`},
		{"section null", ItemPatch{SectionID: ptr[*string](nil)}, `{"section_id":null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.patch)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("marshal = %s, want %s", got, tc.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestHTTPClientSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]any{})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	client.SetAuthToken("tok-123")

	if _, err := client.FetchLists(context.Background(), "user-1"); err != nil {
		t.Fatalf("fetch lists: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotPath != "/api/lists" {
		t.Errorf("path = %q, want /api/lists", gotPath)
	}
}

func TestHTTPClientUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.FetchLists(context.Background(), "user-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestHTTPClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	err := client.DeleteItem(context.Background(), "item-1")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("500 must not map to ErrUnauthorized")
	}
}

func TestHTTPClientSignInStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("path = %q, want /api/auth/login", r.URL.Path)
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "test@example.com" {
			t.Errorf("email = %q", creds["email"])
		}
		json.NewEncoder(w).Encode(AuthResponse{Token: "session-token", UserID: "user-1", Email: creds["email"]})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	auth, err := client.SignIn(context.Background(), "test@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if auth.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", auth.UserID)
	}
	if client.authToken != "session-token" {
		t.Errorf("stored token = %q, want session-token", client.authToken)
	}
}

func TestHTTPClientTouchList(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/lists/l1/touch" {
			t.Errorf("path = %q, want /api/lists/l1/touch", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]time.Time{"updated_at": want})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	got, err := client.TouchList(context.Background(), "l1")
	if err != nil {
		t.Fatalf("touch list: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("updated_at = %v, want %v", got, want)
	}
}

func TestHTTPClientFetchWithEmptyListIDs(t *testing.T) {
	// No lists means nothing to fetch; the server is never contacted.
	client := NewHTTPClient("http://127.0.0.1:1")

	sections, err := client.FetchSections(context.Background(), nil)
	if err != nil || sections != nil {
		t.Errorf("FetchSections(nil) = %v, %v, want nil, nil", sections, err)
	}
	items, err := client.FetchItems(context.Background(), nil)
	if err != nil || items != nil {
		t.Errorf("FetchItems(nil) = %v, %v, want nil, nil", items, err)
	}
}

func TestHTTPClientReassignSection(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items/reassign" {
			t.Errorf("path = %q, want /api/items/reassign", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if err := client.ReassignSection(context.Background(), []string{"i1", "i2"}, nil); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if body["section_id"] != nil {
		t.Errorf("section_id = %v, want null for the loose scope", body["section_id"])
	}
	ids, _ := body["item_ids"].([]any)
	if len(ids) != 2 {
		t.Errorf("item_ids = %v, want two ids", body["item_ids"])
	}
}
