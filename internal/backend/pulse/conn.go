package pulse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jfreymuth/pulse/proto"
	"github.com/vmorsell/app-mixer/internal/bridge"
	"github.com/vmorsell/app-mixer/internal/session"
)

// requestSlack keeps the protocol client's own per-request deadline behind
// the bridge's, so a stalled request surfaces as ErrQueryTimeout.
const requestSlack = time.Second

// cookieSize is the length of an anonymous authentication cookie.
const cookieSize = 256

// Conn is an authenticated connection to a PulseAudio server.
type Conn interface {
	Request(req proto.RequestArgs, rpl proto.Reply) error
	Close() error
}

// Dialer opens a Conn to server and registers the client under clientName.
// An empty server selects the default from the environment. timeout is the
// bound the caller waits for any single request.
type Dialer func(server, clientName string, timeout time.Duration) (Conn, error)

type client struct {
	*proto.Client
	conn net.Conn
}

func (c *client) Close() error {
	return c.conn.Close()
}

// Dial is the Dialer used outside of tests. It tries each address of the
// server string in turn and returns the first one that authenticates.
func Dial(server, clientName string, timeout time.Duration) (Conn, error) {
	addrs, err := serverAddrs(server)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, a := range addrs {
		c, err := dialAddr(a, clientName, timeout)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("connect to pulse server: %w", lastErr)
}

func dialAddr(a address, clientName string, timeout time.Duration) (*client, error) {
	conn, err := net.DialTimeout(a.network, a.addr, timeout)
	if err != nil {
		return nil, err
	}

	// Server events are ignored, but the read loop reports a dropped
	// connection through Callback and needs one installed before it starts.
	pc := &proto.Client{Callback: func(any) {}}
	pc.SetTimeout(timeout + requestSlack)
	pc.Open(conn)

	cookie, err := readCookie()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read cookie: %w", err)
	}
	var auth proto.AuthReply
	if err := pc.Request(&proto.Auth{Version: pc.Version(), Cookie: cookie}, &auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("authenticate with %s: %w", a.addr, err)
	}
	pc.SetVersion(auth.Version)

	props := proto.PropList{
		"application.name": proto.PropListString(clientName),
	}
	if err := pc.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set client name: %w", err)
	}
	return &client{Client: pc, conn: conn}, nil
}

type address struct {
	network string
	addr    string
}

var addrPrefixes = []struct {
	prefix  string
	network string
}{
	{"unix:", "unix"},
	{"tcp6:", "tcp6"},
	{"tcp4:", "tcp4"},
	{"tcp:", "tcp"},
}

// serverAddrs expands a PulseAudio server string. Entries are separated by
// whitespace and may be limited to one host with a {hostname} prefix.
func serverAddrs(server string) ([]address, error) {
	if server == "" {
		server = os.Getenv("PULSE_SERVER")
	}
	if server == "" {
		return []address{{
			network: "unix",
			addr:    filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), "pulse", "native"),
		}}, nil
	}

	hostname, _ := os.Hostname()
	var out []address
	for _, s := range strings.Fields(server) {
		if strings.HasPrefix(s, "{") {
			end := strings.IndexByte(s, '}')
			if end < 0 || s[1:end] != hostname {
				continue
			}
			s = s[end+1:]
		}
		if strings.HasPrefix(s, "/") {
			out = append(out, address{network: "unix", addr: s})
			continue
		}
		for _, p := range addrPrefixes {
			if rest, ok := strings.CutPrefix(s, p.prefix); ok && rest != "" {
				out = append(out, address{network: p.network, addr: rest})
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable address in server string %q", server)
	}
	return out, nil
}

func readCookie() ([]byte, error) {
	path, ok := os.LookupEnv("PULSE_COOKIE")
	if !ok {
		path = filepath.Join(os.Getenv("HOME"), ".config", "pulse", "cookie")
	}
	cookie, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Servers running with auth-anonymous accept any cookie.
		return make([]byte, cookieSize), nil
	}
	return cookie, err
}

// connection is the per-call context. It is owned by a single operation and
// released exactly once no matter how many exit paths call release.
type connection struct {
	conn    Conn
	timeout time.Duration
	once    sync.Once
}

func (c *connection) release() {
	c.once.Do(func() {
		c.conn.Close()
	})
}

// request issues one request and waits for its reply. A request still
// in flight at the deadline is aborted by closing the connection, which
// unblocks the reader.
func (c *connection) request(req proto.RequestArgs, rpl proto.Reply) error {
	_, err := bridge.Await(c.timeout, bridge.Op[struct{}]{
		Run: func() (struct{}, error) {
			return struct{}{}, c.conn.Request(req, rpl)
		},
		Cancel: c.release,
	})
	if errors.Is(err, bridge.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v", session.ErrQueryTimeout, c.timeout)
	}
	return err
}

func (b *Backend) acquire() (*connection, error) {
	conn, err := bridge.Await(b.timeout, bridge.Op[Conn]{
		Run: func() (Conn, error) {
			return b.dial(b.server, b.clientName, b.timeout)
		},
		Discard: func(c Conn) {
			c.Close()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrConnectUnavailable, err)
	}
	return &connection{conn: conn, timeout: b.timeout}, nil
}
