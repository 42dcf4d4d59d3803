package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// Response shapes of the operator endpoints.
type recordList struct {
	Counts     map[string]int          `json:"counts"`
	Records    []model.IssueSyncRecord `json:"records"`
	NextCursor string                  `json:"next_cursor"`
}

type recordDetail struct {
	Record   *model.IssueSyncRecord    `json:"record"`
	Comments []model.CommentSyncRecord `json:"comments"`
}

// serverURL resolves the service base URL: the --url flag or SYNCCTL_URL,
// else localhost on the server's HTTP_ADDR port.
func serverURL() string {
	if u := viper.GetString("url"); u != "" {
		return strings.TrimRight(u, "/")
	}
	addr := viper.GetString("http_addr")
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// bearerToken returns the token to send on operator endpoints: --token if
// given, else one minted from ADMIN_JWT_SECRET, else empty (server running
// unauthenticated).
func bearerToken() (string, error) {
	if tok := viper.GetString("token"); tok != "" {
		return tok, nil
	}
	secret := viper.GetString("admin_jwt_secret")
	if secret == "" {
		return "", nil
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "syncctl",
		"iat": now.Unix(),
		"exp": now.Add(15 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// apiGet performs an authenticated GET against the service and decodes the
// JSON response into out.
func apiGet(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, serverURL()+path, nil)
	if err != nil {
		return err
	}
	tok, err := bearerToken()
	if err != nil {
		return fmt.Errorf("mint bearer token: %w", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
