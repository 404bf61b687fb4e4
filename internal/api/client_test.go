package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-token")

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.token != "test-token" {
			t.Errorf("token = %q, want %q", c.token, "test-token")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
	})

	t.Run("with options", func(t *testing.T) {
		c := NewClient("https://api.example.com", "",
			WithTimeout(5*time.Second),
			WithRetries(5, 2*time.Second),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 5 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 5)
		}
		if c.retryBackoff != 2*time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 2*time.Second)
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{
			StatusCode: 404,
			Message:    "Not Found",
		}
		expected := "api error 404: Not Found"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code int
			want bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{404, false},
			{409, false},
		}
		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.want)
			}
		}
	})
}

func TestListRooms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms" {
			t.Errorf("path = %q, want /rooms", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "42" {
			t.Errorf("user_id = %q, want 42", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
		}

		json.NewEncoder(w).Encode(RoomsResponse{Rooms: []APIRoom{
			{RoomID: 1, UnreadCount: 3, LastMessagePreview: "see you then"},
			{RoomID: 2, UnreadCount: 0},
		}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	rooms, err := c.ListRooms(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}

	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if rooms[0].UnreadCount != 3 {
		t.Errorf("rooms[0].UnreadCount = %d, want 3", rooms[0].UnreadCount)
	}
	if rooms[0].LastMessagePreview != "see you then" {
		t.Errorf("rooms[0].LastMessagePreview = %q", rooms[0].LastMessagePreview)
	}
}

func TestGetMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/7/messages" {
			t.Errorf("path = %q, want /rooms/7/messages", r.URL.Path)
		}
		if got := r.URL.Query().Get("size"); got != "50" {
			t.Errorf("size = %q, want 50", got)
		}

		json.NewEncoder(w).Encode(MessagesResponse{Messages: []APIMessage{
			{ID: 101, RoomID: 7, SenderID: 1, Text: "hi"},
			{ID: 102, RoomID: 7, SenderID: 2, Text: "hello"},
		}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	msgs, err := c.GetMessages(context.Background(), 7, 50)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != 101 || msgs[0].Text != "hi" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
}

func TestOpenRoom(t *testing.T) {
	t.Run("idempotent tuple returns same room", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chats/open" {
				t.Errorf("path = %q, want /chats/open", r.URL.Path)
			}
			var req OpenRoomRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.BuyerID != 1 || req.SellerID != 2 || req.ProductID != 9 {
				t.Errorf("request = %+v", req)
			}

			created := calls.Add(1) == 1
			json.NewEncoder(w).Encode(OpenRoomResult{
				RoomID:     55,
				Created:    created,
				Identifier: "room-55",
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		req := OpenRoomRequest{BuyerID: 1, SellerID: 2, ProductID: 9}

		first, err := c.OpenRoom(context.Background(), req)
		if err != nil {
			t.Fatalf("first OpenRoom failed: %v", err)
		}
		second, err := c.OpenRoom(context.Background(), req)
		if err != nil {
			t.Fatalf("second OpenRoom failed: %v", err)
		}

		if first.RoomID != second.RoomID {
			t.Errorf("room ids differ: %d vs %d", first.RoomID, second.RoomID)
		}
		if !first.Created {
			t.Error("first call should report created=true")
		}
		if second.Created {
			t.Error("second call should report created=false")
		}
	})

	t.Run("self chat rejected", func(t *testing.T) {
		c := NewClient("http://unused", "")
		_, err := c.OpenRoom(context.Background(), OpenRoomRequest{BuyerID: 1, SellerID: 1, ProductID: 9})
		if !errors.Is(err, ErrSelfChat) {
			t.Errorf("expected ErrSelfChat, got %v", err)
		}
	})

	t.Run("server failure surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.OpenRoom(context.Background(), OpenRoomRequest{BuyerID: 1, SellerID: 2, ProductID: 9})
		if err == nil {
			t.Fatal("expected error")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
			t.Errorf("expected APIError 500, got %v", err)
		}
	})

	t.Run("provisioning is not retried", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
		c.OpenRoom(context.Background(), OpenRoomRequest{BuyerID: 1, SellerID: 2, ProductID: 9})

		if got := calls.Load(); got != 1 {
			t.Errorf("POST called %d times, want 1", got)
		}
	})
}

func TestGetMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("path = %q, want /users/me", r.URL.Path)
		}
		json.NewEncoder(w).Encode(MeResponse{UserID: 42, DisplayName: "buyer-42"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	me, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe failed: %v", err)
	}

	if me.UserID != 42 {
		t.Errorf("UserID = %d, want 42", me.UserID)
	}
	if me.DisplayName != "buyer-42" {
		t.Errorf("DisplayName = %q, want %q", me.DisplayName, "buyer-42")
	}
	if me.Token != "tok" {
		t.Errorf("Token = %q, want %q", me.Token, "tok")
	}
}

func TestGetRetries(t *testing.T) {
	t.Run("retries on 500 then succeeds", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(RoomsResponse{})
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
		_, err := c.ListRooms(context.Background(), 1)
		if err != nil {
			t.Fatalf("ListRooms failed after retries: %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("GET called %d times, want 3", got)
		}
	})

	t.Run("no retry on 404", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
		_, err := c.ListRooms(context.Background(), 1)
		if err == nil {
			t.Fatal("expected error")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("GET called %d times, want 1", got)
		}
	})
}
