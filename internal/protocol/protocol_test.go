package protocol

import (
	"bufio"
	"context"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/portvapt/internal/model"
)

const testTimeout = 500 * time.Millisecond

// fakeServer accepts connections on 127.0.0.1 and hands each to handle.
func fakeServer(t *testing.T, handle func(conn net.Conn)) uint16 {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

// silent holds the connection open without sending anything.
func silent(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\r\n", []string{"a"}},
		{"a\r\nb\r\n\r\n", []string{"a", "b", ""}},
		{"a\n\nb", []string{"a", "", "b"}},
	}
	for _, tc := range testCases {
		if got := splitLines(tc.input); !slices.Equal(got, tc.want) {
			t.Errorf("splitLines(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestHTTPProbe(t *testing.T) {
	t.Parallel()

	t.Run("parses server and extra headers", func(t *testing.T) {
		t.Parallel()

		requests := make(chan string, 1)
		port := fakeServer(t, func(conn net.Conn) {
			r := bufio.NewReader(conn)
			var req strings.Builder
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				req.WriteString(line)
				if line == "\r\n" {
					break
				}
			}
			requests <- req.String()
			_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\n" +
				"Server: nginx/1.18.0\r\n" +
				"X-Powered-By: PHP/8.1\r\n" +
				"Via: 1.1 cache\r\n" +
				"Content-Length: 0\r\n\r\n"))
		})

		p := NewHTTPProbe(nil, WithTimeout(testTimeout))
		info, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner()
		if !ok {
			t.Fatal("expected a hit")
		}

		req := <-requests
		if !strings.HasPrefix(req, "HEAD / HTTP/1.1\r\n") {
			t.Errorf("unexpected request line: %q", req)
		}
		if !strings.Contains(req, "User-Agent: PortScanner/1.0\r\n") {
			t.Errorf("missing user agent in %q", req)
		}
		if !strings.Contains(req, "Connection: close\r\n") {
			t.Errorf("missing Connection: close in %q", req)
		}

		if info.Protocol != "HTTP" {
			t.Errorf("Protocol = %q, want HTTP", info.Protocol)
		}
		if info.ServerInfo == nil || *info.ServerInfo != "nginx/1.18.0" {
			t.Errorf("ServerInfo = %v, want nginx/1.18.0", info.ServerInfo)
		}
		wantExtra := []string{"X-Powered-By: PHP/8.1", "Via: 1.1 cache"}
		if !slices.Equal(info.AdditionalInfo, wantExtra) {
			t.Errorf("AdditionalInfo = %q, want %q", info.AdditionalInfo, wantExtra)
		}
		wantBanner := "Server: nginx/1.18.0\nX-Powered-By: PHP/8.1\nVia: 1.1 cache\nContent-Length: 0"
		if info.Banner != wantBanner {
			t.Errorf("Banner = %q, want %q", info.Banner, wantBanner)
		}
	})

	t.Run("single line response becomes the banner", func(t *testing.T) {
		t.Parallel()

		port := fakeServer(t, func(conn net.Conn) {
			_, _ = conn.Write([]byte("SSH-2.0-OpenSSH_9.6\r\n"))
			silent(conn)
		})

		p := NewHTTPProbe(nil, WithTimeout(testTimeout))
		info, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner()
		if !ok {
			t.Fatal("expected a hit")
		}
		if info.Banner != "SSH-2.0-OpenSSH_9.6" {
			t.Errorf("Banner = %q", info.Banner)
		}
		if info.ServerInfo != nil {
			t.Errorf("ServerInfo = %q, want nil", *info.ServerInfo)
		}
	})

	t.Run("server header match is case sensitive", func(t *testing.T) {
		t.Parallel()

		info := parseHTTPResponse([]string{"HTTP/1.1 200 OK", "server: lower"})
		if info.ServerInfo != nil {
			t.Errorf("ServerInfo = %q, want nil", *info.ServerInfo)
		}
	})

	t.Run("only the first ten lines are inspected", func(t *testing.T) {
		t.Parallel()

		lines := []string{"HTTP/1.1 200 OK"}
		for range 9 {
			lines = append(lines, "Date: today")
		}
		lines = append(lines, "Server: late", "X-Late: yes")

		info := parseHTTPResponse(lines)
		if info.ServerInfo != nil {
			t.Errorf("ServerInfo = %q, want nil", *info.ServerInfo)
		}
		if len(info.AdditionalInfo) != 0 {
			t.Errorf("AdditionalInfo = %q, want empty", info.AdditionalInfo)
		}
	})

	t.Run("silent service is a miss", func(t *testing.T) {
		t.Parallel()

		port := fakeServer(t, silent)
		p := NewHTTPProbe(nil, WithTimeout(50*time.Millisecond))
		if _, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner(); ok {
			t.Error("expected a miss")
		}
	})
}

func TestFTPProbe(t *testing.T) {
	t.Parallel()

	t.Run("greeting and help", func(t *testing.T) {
		t.Parallel()

		port := fakeServer(t, func(conn net.Conn) {
			_, _ = conn.Write([]byte("220 ProFTPD Server ready\r\n"))
			line, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil || line != "HELP\r\n" {
				return
			}
			_, _ = conn.Write([]byte("214 Help OK\r\n"))
		})

		p := NewFTPProbe(nil, WithTimeout(testTimeout))
		info, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner()
		if !ok {
			t.Fatal("expected a hit")
		}
		if info.Protocol != "FTP" {
			t.Errorf("Protocol = %q, want FTP", info.Protocol)
		}
		if info.Banner != "220 ProFTPD Server ready" {
			t.Errorf("Banner = %q", info.Banner)
		}
		if info.ServerInfo == nil || *info.ServerInfo != info.Banner {
			t.Errorf("ServerInfo = %v, want the banner", info.ServerInfo)
		}
		if !slices.Equal(info.AdditionalInfo, []string{"HELP: 214 Help OK"}) {
			t.Errorf("AdditionalInfo = %q", info.AdditionalInfo)
		}
	})

	t.Run("help failure keeps the hit", func(t *testing.T) {
		t.Parallel()

		port := fakeServer(t, func(conn net.Conn) {
			_, _ = conn.Write([]byte("220 Welcome\r\n"))
		})

		p := NewFTPProbe(nil, WithTimeout(testTimeout))
		info, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner()
		if !ok {
			t.Fatal("expected a hit")
		}
		if info.ServerInfo != nil {
			t.Errorf("ServerInfo = %q, want nil for an unrecognized greeting", *info.ServerInfo)
		}
		if len(info.AdditionalInfo) != 0 {
			t.Errorf("AdditionalInfo = %q, want empty", info.AdditionalInfo)
		}
	})

	t.Run("no greeting is a miss", func(t *testing.T) {
		t.Parallel()

		port := fakeServer(t, silent)
		p := NewFTPProbe(nil, WithTimeout(50*time.Millisecond))
		if _, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner(); ok {
			t.Error("expected a miss")
		}
	})
}

func TestSMTPProbe(t *testing.T) {
	t.Parallel()

	port := fakeServer(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("220 mail.example.com ESMTP Postfix\r\n"))
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil || line != "EHLO example.com\r\n" {
			return
		}
		_, _ = conn.Write([]byte("250-mail.example.com\r\n" +
			"250-SIZE 10240000\r\n" +
			"250-AUTH PLAIN LOGIN\r\n" +
			"250-PIPELINING\r\n" +
			"250-ENHANCEDSTATUSCODES\r\n" +
			"250 STARTTLS\r\n"))
	})

	p := NewSMTPProbe(nil, WithTimeout(testTimeout))
	info, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner()
	if !ok {
		t.Fatal("expected a hit")
	}
	if info.Protocol != "SMTP" {
		t.Errorf("Protocol = %q, want SMTP", info.Protocol)
	}
	if info.ServerInfo == nil || *info.ServerInfo != "220 mail.example.com ESMTP Postfix" {
		t.Errorf("ServerInfo = %v", info.ServerInfo)
	}
	// STARTTLS is on the sixth line and falls outside the inspected window.
	want := []string{"250-SIZE 10240000", "250-AUTH PLAIN LOGIN"}
	if !slices.Equal(info.AdditionalInfo, want) {
		t.Errorf("AdditionalInfo = %q, want %q", info.AdditionalInfo, want)
	}
}

func TestGenericProbe(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		reply string
		want  string
	}{
		{"SSH-2.0-OpenSSH_9.6\r\n", "SSH"},
		{"HTTP/1.0 400 Bad Request\r\n", "HTTP"},
		{"Debian telnetd\r\n", "TELNET"},
		{"+OK POP3 ready\r\n", "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()

			port := fakeServer(t, func(conn net.Conn) {
				buf := make([]byte, 2)
				if _, err := conn.Read(buf); err != nil {
					return
				}
				_, _ = conn.Write([]byte(tc.reply))
			})

			p := NewGenericProbe(nil, WithTimeout(testTimeout))
			info, ok := p.Probe(context.Background(), "127.0.0.1", port).Banner()
			if !ok {
				t.Fatal("expected a hit")
			}
			if info.Protocol != tc.want {
				t.Errorf("Protocol = %q, want %q", info.Protocol, tc.want)
			}
			if info.Banner != strings.TrimSpace(tc.reply) {
				t.Errorf("Banner = %q", info.Banner)
			}
		})
	}
}

func TestGuessProtocol(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"":                         "Unknown",
		"HTTP/1.1 200":             "HTTP",
		"ssh and http":             "HTTP",
		"220 ProFTPD Server ready": "FTP",
		"220 ESMTP":                "SMTP",
		"TeLnEt":                   "TELNET",
		"random":                   "Unknown",
	}
	for banner, want := range testCases {
		if got := GuessProtocol(banner); got != want {
			t.Errorf("GuessProtocol(%q) = %q, want %q", banner, got, want)
		}
	}
}

func TestSSHVersion(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		banner string
		want   string
	}{
		{"SSH-2.0-OpenSSH_8.9p1 Ubuntu-3ubuntu0.1", "OpenSSH_8.9p1"},
		{"SSH-2.0-dropbear_2022.83", "dropbear_2022.83"},
		{"banner line\nSSH-1.99-Cisco-1.25", "Cisco-1.25"},
	}
	for _, tc := range testCases {
		got := sshVersion(tc.banner)
		if got == nil || *got != tc.want {
			t.Errorf("sshVersion(%q) = %v, want %q", tc.banner, got, tc.want)
		}
	}

	for _, banner := range []string{"", "HTTP/1.1 200 OK", "SSH-2.0-"} {
		if got := sshVersion(banner); got != nil {
			t.Errorf("sshVersion(%q) = %q, want nil", banner, *got)
		}
	}
}

// scriptedProbe records its invocation and returns a fixed result.
type scriptedProbe struct {
	name string
	hit  bool
	log  *[]string
	mu   *sync.Mutex
}

func (p scriptedProbe) Name() string { return p.name }

func (p scriptedProbe) Probe(_ context.Context, _ string, _ uint16) Result {
	p.mu.Lock()
	*p.log = append(*p.log, p.name)
	p.mu.Unlock()
	if !p.hit {
		return Miss()
	}
	return Hit(&model.BannerInfo{Protocol: strings.ToUpper(p.name), Banner: "SSH-2.0-OpenSSH_9.6"})
}

func TestIdentifierOrder(t *testing.T) {
	t.Parallel()

	t.Run("default chain order", func(t *testing.T) {
		t.Parallel()

		id := NewIdentifier(nil, nil)
		var names []string
		for _, p := range id.Probes() {
			names = append(names, p.Name())
		}
		if want := []string{"http", "ftp", "smtp", "generic"}; !slices.Equal(names, want) {
			t.Errorf("probe order = %v, want %v", names, want)
		}
	})

	t.Run("stops at first hit", func(t *testing.T) {
		t.Parallel()

		var (
			mu    sync.Mutex
			calls []string
		)
		probe := func(name string, hit bool) Probe {
			return scriptedProbe{name: name, hit: hit, log: &calls, mu: &mu}
		}

		id := NewIdentifier(nil, nil, WithProbes(
			probe("http", false),
			probe("ftp", false),
			probe("smtp", true),
			probe("generic", true),
		))

		info := id.Identify(context.Background(), "127.0.0.1", 25)
		if info == nil {
			t.Fatal("expected a banner")
		}
		if info.Protocol != "SMTP" {
			t.Errorf("Protocol = %q, want SMTP", info.Protocol)
		}
		if info.Version == nil || *info.Version != "OpenSSH_9.6" {
			t.Errorf("Version = %v, want OpenSSH_9.6", info.Version)
		}
		if want := []string{"http", "ftp", "smtp"}; !slices.Equal(calls, want) {
			t.Errorf("calls = %v, want %v", calls, want)
		}
	})

	t.Run("all misses yield nil", func(t *testing.T) {
		t.Parallel()

		port := fakeServer(t, silent)
		id := NewIdentifier(nil, []Option{WithTimeout(50 * time.Millisecond)})
		if info := id.Identify(context.Background(), "127.0.0.1", port); info != nil {
			t.Errorf("expected nil, got %+v", info)
		}
	})

	t.Run("closed port yields nil", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		port := uint16(ln.Addr().(*net.TCPAddr).Port)
		ln.Close()

		id := NewIdentifier(nil, []Option{WithTimeout(50 * time.Millisecond)})
		if info := id.Identify(context.Background(), "127.0.0.1", port); info != nil {
			t.Errorf("expected nil, got %+v", info)
		}
	})
}
