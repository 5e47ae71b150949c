package pulse

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfreymuth/pulse/proto"
	"github.com/vmorsell/app-mixer/internal/procinfo"
	"github.com/vmorsell/app-mixer/internal/session"
	"go.uber.org/zap/zaptest"
)

// wireMode selects how the socket server treats requests after the handshake.
type wireMode int

const (
	wireDrop wireMode = iota
	wireStall
	wireNoEntity
)

const (
	packetHeaderSize = 20
	controlChannel   = 0xFFFFFFFF
)

// startWireServer runs a PulseAudio server on a unix socket that answers the
// authentication and client name handshake, then handles every other
// request according to mode. It returns the server string to dial.
func startWireServer(t *testing.T, mode wireMode) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "native")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen on %s: %v", path, err)
	}
	t.Cleanup(func() { ln.Close() })
	t.Setenv("PULSE_COOKIE", filepath.Join(dir, "cookie"))

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveWire(conn, mode)
		}
	}()
	return "unix:" + path
}

func serveWire(conn net.Conn, mode wireMode) {
	defer conn.Close()
	for {
		op, tag, err := readCommand(conn)
		if err != nil {
			return
		}
		switch op {
		case proto.OpAuth:
			err = writePacket(conn, tagged(proto.OpReply, tag, 32))
		case proto.OpSetClientName:
			err = writePacket(conn, tagged(proto.OpReply, tag, 1))
		default:
			switch mode {
			case wireDrop:
				return
			case wireStall:
				continue
			case wireNoEntity:
				err = writePacket(conn, tagged(proto.OpError, tag, uint32(proto.ErrNoSuchEntity)))
			}
		}
		if err != nil {
			return
		}
	}
}

func readCommand(r io.Reader) (op, tag uint32, err error) {
	hdr := make([]byte, packetHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, 0, err
	}
	payload := make([]byte, binary.BigEndian.Uint32(hdr[0:4]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, 0, err
	}
	if len(payload) < 10 {
		return 0, 0, errors.New("short command")
	}
	return binary.BigEndian.Uint32(payload[1:5]), binary.BigEndian.Uint32(payload[6:10]), nil
}

func writePacket(w io.Writer, payload []byte) error {
	hdr := make([]byte, packetHeaderSize)
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(hdr[4:8], controlChannel)
	_, err := w.Write(append(hdr, payload...))
	return err
}

// tagged encodes values as a sequence of uint32 fields.
func tagged(values ...uint32) []byte {
	b := make([]byte, 0, 5*len(values))
	for _, v := range values {
		b = append(b, 'L')
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return b
}

func newWireBackend(t *testing.T, server string, timeout time.Duration) *Backend {
	t.Helper()
	return New(zaptest.NewLogger(t), Options{
		Server:  server,
		Timeout: timeout,
		LookupProcess: func(uint32) (procinfo.Info, error) {
			return procinfo.Info{}, errors.New("no such process")
		},
	})
}

func TestDial_ServerDropsMidQuery(t *testing.T) {
	b := newWireBackend(t, startWireServer(t, wireDrop), 2*time.Second)

	got, err := b.Sessions()
	if err == nil {
		t.Fatal("expected an error after the server dropped the connection")
	}
	if errors.Is(err, session.ErrQueryTimeout) {
		t.Errorf("a dropped connection should fail fast, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %+v", got)
	}

	if err := b.SetMute(session.Target{Kind: session.KindDevice, Index: 0}, true); err == nil {
		t.Error("expected SetMute to fail after the server dropped the connection")
	}
}

func TestDial_StalledServerUsesOperationTimeout(t *testing.T) {
	// Longer than the protocol client's built-in one second deadline.
	timeout := 1500 * time.Millisecond
	b := newWireBackend(t, startWireServer(t, wireStall), timeout)

	start := time.Now()
	_, err := b.Sessions()
	elapsed := time.Since(start)
	if !errors.Is(err, session.ErrQueryTimeout) {
		t.Fatalf("expected ErrQueryTimeout, got %v", err)
	}
	if elapsed < timeout-100*time.Millisecond {
		t.Errorf("Sessions gave up after %v, before the %v operation timeout", elapsed, timeout)
	}

	err = b.SetVolume(session.Target{Kind: session.KindStream, Index: 3}, 40)
	if !errors.Is(err, session.ErrQueryTimeout) {
		t.Errorf("expected ErrQueryTimeout from a stalled lookup, got %v", err)
	}
	if errors.Is(err, session.ErrResolution) {
		t.Errorf("a stalled server must not look like a missing session: %v", err)
	}
}

func TestDial_NoSuchEntityIsResolutionFailure(t *testing.T) {
	b := newWireBackend(t, startWireServer(t, wireNoEntity), 2*time.Second)
	target := session.Target{Kind: session.KindStream, Index: 999999}

	if err := b.SetVolume(target, 50); !errors.Is(err, session.ErrResolution) {
		t.Errorf("SetVolume: expected ErrResolution, got %v", err)
	}
	if err := b.SetMute(target, true); !errors.Is(err, session.ErrResolution) {
		t.Errorf("SetMute: expected ErrResolution, got %v", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	server := "unix:" + filepath.Join(t.TempDir(), "missing")
	b := newWireBackend(t, server, time.Second)

	if _, err := b.Sessions(); !errors.Is(err, session.ErrConnectUnavailable) {
		t.Fatalf("expected ErrConnectUnavailable, got %v", err)
	}
}

func TestServerAddrs(t *testing.T) {
	hostname, _ := os.Hostname()

	tests := []struct {
		name    string
		server  string
		env     string
		want    []address
		wantErr bool
	}{
		{
			name:   "bare path",
			server: "/run/pulse/native",
			want:   []address{{"unix", "/run/pulse/native"}},
		},
		{
			name:   "prefixed entries",
			server: "unix:/tmp/pulse tcp:localhost:4713 tcp6:[::1]:4713",
			want: []address{
				{"unix", "/tmp/pulse"},
				{"tcp", "localhost:4713"},
				{"tcp6", "[::1]:4713"},
			},
		},
		{
			name:   "host restricted",
			server: "{" + hostname + "}unix:/tmp/mine {not-" + hostname + "}unix:/tmp/theirs",
			want:   []address{{"unix", "/tmp/mine"}},
		},
		{
			name:   "from environment",
			server: "",
			env:    "tcp4:127.0.0.1:4713",
			want:   []address{{"tcp4", "127.0.0.1:4713"}},
		},
		{
			name:    "nothing usable",
			server:  "bogus",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PULSE_SERVER", tt.env)

			got, err := serverAddrs(tt.server)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("serverAddrs failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("address %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestServerAddrs_Default(t *testing.T) {
	t.Setenv("PULSE_SERVER", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	got, err := serverAddrs("")
	if err != nil {
		t.Fatalf("serverAddrs failed: %v", err)
	}
	want := address{"unix", "/run/user/1000/pulse/native"}
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected [%+v], got %+v", want, got)
	}
}
