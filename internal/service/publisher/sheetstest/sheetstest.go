// Package sheetstest serves a fake Google token endpoint next to a fake
// Sheets API so the sink can run its real service account flow in tests.
package sheetstest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

const jwtGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// Server answers POST /token with a fresh access token ("token-1",
// "token-2", ...) and hands every other request to the API handler. Tokens
// expire at once, so each API call fetches a new one.
type Server struct {
	*httptest.Server
	issued atomic.Int32
}

func NewServer(t testing.TB, api http.Handler) *Server {
	t.Helper()
	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.handleToken)
	mux.Handle("/", api)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != jwtGrantType || r.PostForm.Get("assertion") == "" {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	n := s.issued.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": fmt.Sprintf("token-%d", n),
		"token_type":   "Bearer",
		"expires_in":   1,
	})
}

// TokensIssued counts successful token requests.
func (s *Server) TokensIssued() int {
	return int(s.issued.Load())
}

// CredentialsFile writes a service account key whose token_uri points at
// this server and returns its path.
func (s *Server) CredentialsFile(t testing.TB) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "leadloom-test",
		"private_key_id": "key-1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "sheets@leadloom-test.iam.gserviceaccount.com",
		"client_id":      "1",
		"token_uri":      s.URL + "/token",
	})
	if err != nil {
		t.Fatalf("marshal credentials: %v", err)
	}

	path := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}
