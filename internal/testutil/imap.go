package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"

	"github.com/skovert/mailmirror/internal/models"
)

// TestIMAPServer is an in-process IMAP server backed by the go-imap memory
// backend, used to exercise the sync engine against a live protocol peer.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServer starts a test IMAP server on a random port. The memory
// backend creates a default user with username "username" and password
// "password", and an INBOX that already contains one message.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give the server time to start
	time.Sleep(100 * time.Millisecond)

	return &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  func() { _ = s.Close() },
		username: "username",
		password: "password",
	}
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Account returns a models.Account pointed at this test server.
func (s *TestIMAPServer) Account(id int64) *models.Account {
	host, portStr, _ := net.SplitHostPort(s.Address)
	port := 0
	_, _ = fmt.Sscanf(portStr, "%d", &port)

	return &models.Account{
		ID:       id,
		Email:    "username@test.local",
		IMAPHost: host,
		IMAPPort: port,
		IMAPTLS:  false,
		Username: s.username,
		Password: s.password,
		IsActive: true,
	}
}

// Connect creates a logged-in IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	return client, func() { _ = client.Logout() }
}

// CreateFolder creates a folder on the test server.
func (s *TestIMAPServer) CreateFolder(t *testing.T, name string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if err := client.Create(name); err != nil {
		t.Fatalf("Failed to create folder %s: %v", name, err)
	}
}

// AddMessage appends a simple text message to the given folder and returns
// its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName, messageID, subject, from, to string, sentAt time.Time) uint32 {
	t.Helper()

	body := fmt.Sprintf(`Message-ID: %s
Date: %s
From: %s
To: %s
Subject: %s
Content-Type: text/plain; charset=utf-8

Test message body.
`, messageID, sentAt.Format(time.RFC1123Z), from, to, subject)

	return s.AddRawMessage(t, folderName, messageID, body)
}

// AddRawMessage appends a raw RFC 822 message to the given folder and
// returns its UID. When the message carries a Message-ID header the UID is
// located by header search, otherwise by taking the highest UID.
func (s *TestIMAPServer) AddRawMessage(t *testing.T, folderName, messageID, raw string) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	if err := client.Append(folderName, nil, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	if messageID != "" {
		criteria.Header.Add("Message-ID", messageID)
	}
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[len(uids)-1]
}
