package wire_test

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fluerion/node/foundation/wire"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func startApp(t *testing.T, cfg wire.AppConfig) (*wire.App, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to listen: %v", failed, err)
	}

	app := wire.NewApp(cfg)

	app.Handle(wire.CmdGetPeers, func(ctx context.Context, payload string) (string, error) {
		return wire.FormatPeerList([]string{"127.0.0.1:9001", "127.0.0.1:9002"}), nil
	})

	app.Handle(wire.CmdAddPeer, func(ctx context.Context, payload string) (string, error) {
		v, err := wire.GetValues(ctx)
		if err != nil {
			return "", err
		}
		if v.TraceID == "" || v.Command != "ADD_PEER" {
			return "", errors.New("missing values")
		}
		return wire.PeerAdded(payload), nil
	})

	app.Handle(wire.CmdNewTransaction, func(ctx context.Context, payload string) (string, error) {
		return payload, nil
	})

	go app.Serve(ln)
	t.Cleanup(func() { app.Shutdown(context.Background()) })

	return app, ln.Addr().String()
}

func Test_Exchange(t *testing.T) {
	_, host := startApp(t, wire.AppConfig{ReadTimeout: time.Second, WriteTimeout: time.Second})
	client := wire.Client{DialTimeout: time.Second, IOTimeout: time.Second}

	type table struct {
		name string
		msg  string
		resp string
	}

	large := `"` + strings.Repeat("x", 64*1024) + `"`

	tt := []table{
		{name: "peers", msg: wire.CmdGetPeers, resp: "PEER_LIST:127.0.0.1:9001,127.0.0.1:9002"},
		{name: "addpeer", msg: "ADD_PEER:127.0.0.1:9001", resp: "Peer 127.0.0.1:9001 added"},
		{name: "trimmed", msg: "ADD_PEER: 127.0.0.1:9003 ", resp: "Peer 127.0.0.1:9003 added"},
		{name: "unknown", msg: "HELLO", resp: wire.RespUnknownCommand},
		{name: "large", msg: wire.CmdNewTransaction + large, resp: large},
	}

	t.Log("Given the need to exchange a command and a response.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen sending %.20q.", testID, tst.msg)
				{
					resp, err := client.Send(context.Background(), host, tst.msg)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to send the command: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to send the command.", success, testID)

					if resp != tst.resp {
						t.Logf("\t\tTest %d:\tgot: %.40q", testID, resp)
						t.Logf("\t\tTest %d:\texp: %.40q", testID, tst.resp)
						t.Fatalf("\t%s\tTest %d:\tShould get the expected response.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected response.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ReadDeadline(t *testing.T) {
	_, host := startApp(t, wire.AppConfig{ReadTimeout: 100 * time.Millisecond})

	t.Log("Given the need to serve clients that never finish a command.")
	{
		t.Logf("\tTest 0:\tWhen a partial payload arrives without a half-close.")
		{
			conn, err := net.Dial("tcp", host)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to connect: %v", failed, err)
			}
			defer conn.Close()

			if _, err := io.WriteString(conn, wire.CmdNewTransaction+`{"sender"`); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write: %v", failed, err)
			}

			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			resp, err := io.ReadAll(conn)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read: %v", failed, err)
			}

			if string(resp) != `{"sender"` {
				t.Fatalf("\t%s\tTest 0:\tShould dispatch what arrived, got %q.", failed, resp)
			}
			t.Logf("\t%s\tTest 0:\tShould dispatch what arrived once the read deadline passes.", success)
		}
	}
}

func Test_NoHalfClose(t *testing.T) {
	_, host := startApp(t, wire.AppConfig{})

	dial := func(t *testing.T) net.Conn {
		conn, err := net.Dial("tcp", host)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to connect: %v", failed, err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	t.Log("Given the need to answer clients that send a command in one write and never half-close.")
	{
		t.Logf("\tTest 0:\tWhen the command has no payload.")
		{
			conn := dial(t)

			if _, err := io.WriteString(conn, wire.CmdGetPeers); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write: %v", failed, err)
			}

			conn.SetReadDeadline(time.Now().Add(time.Second))
			resp, err := io.ReadAll(conn)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be answered before the client gives up: %v", failed, err)
			}

			if !strings.HasPrefix(string(resp), wire.RespPeerList) {
				t.Fatalf("\t%s\tTest 0:\tShould get the peer list, got %q.", failed, resp)
			}
			t.Logf("\t%s\tTest 0:\tShould get the peer list right away.", success)
		}

		t.Logf("\tTest 1:\tWhen the JSON payload arrives in two writes.")
		{
			conn := dial(t)
			payload := `{"sender":"Alice","receiver":"Bob","amount":5}`

			if _, err := io.WriteString(conn, wire.CmdNewTransaction+payload[:10]); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write: %v", failed, err)
			}

			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			if n, err := conn.Read(make([]byte, 64)); n != 0 || !errors.Is(err, os.ErrDeadlineExceeded) {
				t.Fatalf("\t%s\tTest 1:\tShould wait for the rest of the payload, got %d bytes: %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 1:\tShould wait for the rest of the payload.", success)

			if _, err := io.WriteString(conn, payload[10:]); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write: %v", failed, err)
			}

			conn.SetReadDeadline(time.Now().Add(time.Second))
			resp, err := io.ReadAll(conn)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be answered: %v", failed, err)
			}

			if string(resp) != payload {
				t.Fatalf("\t%s\tTest 1:\tShould get the whole payload back, got %q.", failed, resp)
			}
			t.Logf("\t%s\tTest 1:\tShould get the whole payload back.", success)
		}
	}
}

func Test_Complete(t *testing.T) {
	type table struct {
		name     string
		data     string
		complete bool
	}

	tt := []table{
		{name: "plain", data: "GET_PEERS", complete: true},
		{name: "plainspace", data: "GET_BLOCK_TO_MINE\n", complete: true},
		{name: "partialname", data: "GET_BLOCK", complete: false},
		{name: "empty", data: "", complete: false},
		{name: "nopayload", data: "NEW_BLOCK:", complete: false},
		{name: "partialjson", data: `MINED_BLOCK:{"nonce":1,"transactions":[`, complete: false},
		{name: "json", data: `NEW_TRANSACTION:{"sender":"Alice"}`, complete: true},
		{name: "badjson", data: "NEW_TRANSACTION:{not json", complete: true},
		{name: "text", data: "GET_BALANCE:Bob", complete: true},
		{name: "notext", data: "ADD_PEER:", complete: false},
		{name: "unknown", data: "HELLO", complete: true},
	}

	t.Log("Given the need to know when a command has fully arrived.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen holding %q.", testID, tst.data)
				{
					if got := wire.Complete([]byte(tst.data)); got != tst.complete {
						t.Fatalf("\t%s\tTest %d:\tShould report complete %v, got %v.", failed, testID, tst.complete, got)
					}
					t.Logf("\t%s\tTest %d:\tShould report complete %v.", success, testID, tst.complete)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_MessageTooLarge(t *testing.T) {
	_, host := startApp(t, wire.AppConfig{MaxMessageSize: 16})
	client := wire.Client{DialTimeout: time.Second, IOTimeout: time.Second}

	t.Log("Given the need to bound the size of a command.")
	{
		t.Logf("\tTest 0:\tWhen the command is larger than the limit.")
		{
			resp, err := client.Send(context.Background(), host, wire.CmdNewTransaction+strings.Repeat("x", 32))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould get a response: %v", failed, err)
			}

			if !strings.HasPrefix(resp, wire.RespError) {
				t.Fatalf("\t%s\tTest 0:\tShould get an error response, got %q.", failed, resp)
			}
			t.Logf("\t%s\tTest 0:\tShould get an error response.", success)
		}
	}
}

func Test_TransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to listen: %v", failed, err)
	}
	host := ln.Addr().String()
	ln.Close()

	t.Log("Given the need to report unreachable nodes.")
	{
		t.Logf("\tTest 0:\tWhen nothing listens on the address.")
		{
			_, err := wire.Client{DialTimeout: time.Second}.Send(context.Background(), host, wire.CmdGetPeers)

			var te *wire.TransportError
			if !errors.As(err, &te) || te.Op != "dial" || te.Host != host {
				t.Fatalf("\t%s\tTest 0:\tShould get a dial transport error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a dial transport error.", success)
		}
	}
}

func Test_PeerList(t *testing.T) {
	t.Log("Given the need to parse peer lists.")
	{
		t.Logf("\tTest 0:\tWhen the list is well formed.")
		{
			hosts, err := wire.ParsePeerList("PEER_LIST:a:1, b:2,,")
			if err != nil || len(hosts) != 2 || hosts[0] != "a:1" || hosts[1] != "b:2" {
				t.Fatalf("\t%s\tTest 0:\tShould parse the hosts, got %v: %v.", failed, hosts, err)
			}
			t.Logf("\t%s\tTest 0:\tShould parse the hosts.", success)
		}

		t.Logf("\tTest 1:\tWhen the list is empty.")
		{
			hosts, err := wire.ParsePeerList(wire.FormatPeerList(nil))
			if err != nil || len(hosts) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould parse no hosts, got %v: %v.", failed, hosts, err)
			}
			t.Logf("\t%s\tTest 1:\tShould parse no hosts.", success)
		}

		t.Logf("\tTest 2:\tWhen the response is not a peer list.")
		{
			if _, err := wire.ParsePeerList(wire.RespUnknownCommand); !wire.IsDecodeError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould get a decode error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a decode error.", success)
		}
	}
}
