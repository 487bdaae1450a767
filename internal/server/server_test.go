package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mtlprog/wallet/internal/command"
	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/pricing"
	"github.com/mtlprog/wallet/internal/store"
)

type stubSource struct{}

func (stubSource) FetchAssets(_ context.Context) ([]domain.Asset, error) {
	return []domain.Asset{
		{ID: "BTC", Name: "Bitcoin", IsCrypto: true, PriceUSD: 100},
	}, nil
}

// startServer brings up a full server on an ephemeral port and returns its
// address.
func startServer(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cache, err := pricing.NewCache(ctx, stubSource{}, time.Hour, 100)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(cache.Close)

	pipeline, err := command.NewPipeline(store.NewMemoryStore(), cache)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	srv, err := New("127.0.0.1:0", pipeline)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(srv.Close)

	go func() {
		if err := srv.Serve(ctx); err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv.Addr()
}

// send writes one request line and reads the response body up to the STOP
// sentinel.
func send(t *testing.T, conn net.Conn, scanner *bufio.Scanner, line string) string {
	t.Helper()

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("writing %q: %v", line, err)
	}

	var body []string
	for scanner.Scan() {
		text := scanner.Text()
		if text == stopWord {
			return strings.Join(body, "\n")
		}
		body = append(body, text)
	}
	t.Fatalf("connection closed before %s sentinel: %v", stopWord, scanner.Err())
	return ""
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewScanner(conn)
}

func TestServerFullSession(t *testing.T) {
	addr := startServer(t)
	conn, scanner := dial(t, addr)

	resp := send(t, conn, scanner, "register --username=alice@example.com --password=secret123")
	if resp != "User alice@example.com registered successfully!" {
		t.Errorf("register response = %q", resp)
	}

	resp = send(t, conn, scanner, "login --username=alice@example.com --password=secret123")
	if resp != "Login successful! Welcome, alice@example.com" {
		t.Errorf("login response = %q", resp)
	}

	resp = send(t, conn, scanner, "deposit 1000")
	if resp != "$1000.00 deposited successfully to alice@example.com's balance" {
		t.Errorf("deposit response = %q", resp)
	}

	resp = send(t, conn, scanner, "buy --offering=BTC --money=400")
	if resp != "Successfully bought asset with id: BTC!" {
		t.Errorf("buy response = %q", resp)
	}

	resp = send(t, conn, scanner, "get-wallet-summary")
	if !strings.Contains(resp, "Balance: $600.00") {
		t.Errorf("summary response = %q, want balance line", resp)
	}

	resp = send(t, conn, scanner, "logout")
	if resp != "Logged out successfully!" {
		t.Errorf("logout response = %q", resp)
	}
}

func TestServerValidationErrorsAreSentToClient(t *testing.T) {
	addr := startServer(t)
	conn, scanner := dial(t, addr)

	resp := send(t, conn, scanner, "frobnicate")
	if !strings.Contains(resp, "no such command present") {
		t.Errorf("unknown command response = %q", resp)
	}

	resp = send(t, conn, scanner, "deposit 100")
	if !strings.Contains(resp, "you should log in") {
		t.Errorf("unauthenticated response = %q", resp)
	}
}

func TestServerSessionsAreIndependent(t *testing.T) {
	addr := startServer(t)

	first, firstScanner := dial(t, addr)
	send(t, first, firstScanner, "register --username=bob@example.com --password=secret123")
	resp := send(t, first, firstScanner, "login --username=bob@example.com --password=secret123")
	if !strings.HasPrefix(resp, "Login successful!") {
		t.Fatalf("login response = %q", resp)
	}

	// A second connection shares the store but not the authentication.
	second, secondScanner := dial(t, addr)
	resp = send(t, second, secondScanner, "deposit 100")
	if !strings.Contains(resp, "you should log in") {
		t.Errorf("second connection deposit response = %q, want auth rejection", resp)
	}

	resp = send(t, second, secondScanner, "login --username=bob@example.com --password=secret123")
	if !strings.HasPrefix(resp, "Login successful!") {
		t.Errorf("second connection login response = %q", resp)
	}
}

func TestServerHandlesSplitRequests(t *testing.T) {
	addr := startServer(t)
	conn, scanner := dial(t, addr)

	// One request delivered in two writes; the response only arrives once the
	// newline completes the line.
	if _, err := conn.Write([]byte("hel")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	resp := send(t, conn, scanner, "p")
	if !strings.Contains(resp, "register") {
		t.Errorf("help response = %q, want command reference", resp)
	}
}

func TestServerClosePreventsServe(t *testing.T) {
	pipeline := newTestPipeline(t)

	srv, err := New("127.0.0.1:0", pipeline)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.Close()
	srv.Close()

	if err := srv.Serve(context.Background()); err != nil {
		t.Errorf("Serve() after Close() error = %v, want nil", err)
	}
}

func newTestPipeline(t *testing.T) *command.Pipeline {
	t.Helper()
	cache, err := pricing.NewCache(context.Background(), stubSource{}, time.Hour, 100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cache.Close)
	pipeline, err := command.NewPipeline(store.NewMemoryStore(), cache)
	if err != nil {
		t.Fatal(err)
	}
	return pipeline
}
