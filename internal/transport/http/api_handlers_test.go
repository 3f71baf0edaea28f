package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestSignInSetsCredentialCookie(t *testing.T) {
	ts, _, authService := startTestServer(t)

	resp, err := noRedirectClient().Post(
		ts.URL+"/api/signin",
		"application/json",
		strings.NewReader(`{"username":"alice"}`),
	)
	if err != nil {
		t.Fatalf("signin request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}

	var token string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == CredentialCookie {
			token = cookie.Value
			if !cookie.HttpOnly {
				t.Fatalf("credential cookie must be http-only")
			}
		}
	}
	if token == "" {
		t.Fatalf("expected %s cookie to be set", CredentialCookie)
	}

	username, err := authService.Verify(token)
	if err != nil {
		t.Fatalf("cookie credential failed verification: %v", err)
	}
	if username != "alice" {
		t.Fatalf("credential bound to %q, expected alice", username)
	}
}

func TestSignInRejectsMissingUsername(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := noRedirectClient().Post(
		ts.URL+"/api/signin",
		"application/json",
		strings.NewReader(`{}`),
	)
	if err != nil {
		t.Fatalf("signin request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHomeRequiresCredential(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := http.Get(ts.URL + "/api/home")
	if err != nil {
		t.Fatalf("home request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHomeReturnsDirectoryAndContacts(t *testing.T) {
	ts, st, authService := startTestServer(t)
	ctx := context.Background()

	tokenAlice, _, err := authService.SignIn(ctx, "alice")
	if err != nil {
		t.Fatalf("signin alice: %v", err)
	}
	if _, _, err := authService.SignIn(ctx, "bob"); err != nil {
		t.Fatalf("signin bob: %v", err)
	}
	if _, _, err := authService.SignIn(ctx, "carol"); err != nil {
		t.Fatalf("signin carol: %v", err)
	}
	if _, err := st.AppendMessage(ctx, "alice", "bob", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/home", nil)
	req.Header.Set("Authorization", "Bearer "+tokenAlice)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("home request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var home HomeResponse
	if err := json.NewDecoder(resp.Body).Decode(&home); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if home.Username != "alice" {
		t.Fatalf("expected username alice, got %q", home.Username)
	}

	var directory []string
	for _, u := range home.Users {
		if u.Username == "alice" {
			t.Fatalf("directory must exclude self")
		}
		directory = append(directory, u.Username)
	}
	if len(directory) != 2 {
		t.Fatalf("expected [bob carol] in directory, got %v", directory)
	}

	if len(home.Contacts) != 1 || home.Contacts[0].Username != "bob" {
		t.Fatalf("expected contacts [bob], got %v", home.Contacts)
	}
}

func TestChatReturnsHistoryForPeer(t *testing.T) {
	ts, st, authService := startTestServer(t)
	ctx := context.Background()

	tokenAlice, _, err := authService.SignIn(ctx, "alice")
	if err != nil {
		t.Fatalf("signin alice: %v", err)
	}
	_, bob, err := authService.SignIn(ctx, "bob")
	if err != nil {
		t.Fatalf("signin bob: %v", err)
	}

	if _, err := st.AppendMessage(ctx, "alice", "bob", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.AppendMessage(ctx, "bob", "alice", "hey"); err != nil {
		t.Fatalf("append: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/chat/"+bob.PublicID, nil)
	req.Header.Set("Authorization", "Bearer "+tokenAlice)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("chat request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if chat.Peer.Username != "bob" || chat.Peer.ID != bob.PublicID {
		t.Fatalf("unexpected peer: %+v", chat.Peer)
	}
	if len(chat.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chat.Messages))
	}
	if chat.Messages[0].Content != "hi" || chat.Messages[1].Content != "hey" {
		t.Fatalf("history out of order: %+v", chat.Messages)
	}
	if chat.Messages[0].Sequence >= chat.Messages[1].Sequence {
		t.Fatalf("sequence not ascending: %+v", chat.Messages)
	}
}

func TestChatUnknownPeerIsNotFound(t *testing.T) {
	ts, _, authService := startTestServer(t)

	tokenAlice, _, err := authService.SignIn(context.Background(), "alice")
	if err != nil {
		t.Fatalf("signin alice: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/chat/no-such-id", nil)
	req.Header.Set("Authorization", "Bearer "+tokenAlice)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("chat request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
