package session

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/mobile-cli/internal/protocol"
)

func startHub(t *testing.T) (*Server, string) {
	t.Helper()
	reg := NewRegistry(Options{})
	hub := NewServer(reg, ServerOptions{RequestTimeout: time.Second})
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Shutdown(context.Background())
		srv.Close()
		reg.Stop()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// connectDevice registers a fake app and answers every request with
// handle's result. Received requests are sent on the returned channel.
func connectDevice(t *testing.T, hub *Server, url, platform, name string, handle func(protocol.Message) protocol.Message) <-chan protocol.Message {
	t.Helper()
	conn := dial(t, url)
	before := len(hub.Registry().Devices())
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeInit, Platform: platform, DeviceName: name}))
	require.Eventually(t, func() bool { return len(hub.Registry().Devices()) == before+1 }, time.Second, 5*time.Millisecond)

	requests := make(chan protocol.Message, 16)
	go func() {
		for {
			var m protocol.Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			if !m.IsRequest() {
				continue
			}
			requests <- m
			reply := handle(m)
			reply.ID = m.ID
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}()
	return requests
}

func okReply(protocol.Message) protocol.Message {
	return protocol.Message{Result: json.RawMessage(`{"ok":true}`)}
}

func TestPingBeforeInit(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypePing}))
	var pong protocol.Message
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, protocol.TypePong, pong.Type)
}

func TestInitRegistersDevice(t *testing.T) {
	hub, url := startHub(t)
	connectDevice(t, hub, url, "ios", "iPhone 15", okReply)

	devices := hub.Registry().Devices()
	require.Len(t, devices, 1)
	require.Equal(t, "ios-1", devices[0].DeviceID)
	require.Equal(t, "iPhone 15", devices[0].Name())
	require.True(t, devices[0].Connected)
}

func TestInitWithUnknownPlatformIgnored(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeInit, Platform: "symbian"}))

	// The connection still answers pings, but nothing registered.
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypePing}))
	var pong protocol.Message
	require.NoError(t, conn.ReadJSON(&pong))
	require.Empty(t, hub.Registry().Devices())
}

func TestRegistrySendsThroughHub(t *testing.T) {
	hub, url := startHub(t)
	requests := connectDevice(t, hub, url, "android", "", func(m protocol.Message) protocol.Message {
		return protocol.Message{Result: json.RawMessage(`{"width":390,"height":844}`)}
	})

	res, err := hub.Registry().Call("", protocol.MethodGetViewport, nil, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"width":390,"height":844}`, string(res))
	require.Equal(t, protocol.MethodGetViewport, (<-requests).Method)
}

func TestDisconnectRemovesDevice(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeInit, Platform: "ios"}))
	require.Eventually(t, func() bool { return len(hub.Registry().Devices()) == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return len(hub.Registry().Devices()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestExtensionHandshakeAndGetDevices(t *testing.T) {
	hub, url := startHub(t)
	connectDevice(t, hub, url, "ios", "", okReply)

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeExtensionInit}))
	var ack protocol.Message
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, protocol.TypeExtensionInitAck, ack.Type)

	// No id: the hub assigns one.
	require.NoError(t, conn.WriteJSON(protocol.Message{Method: protocol.MethodGetDevices}))
	var reply protocol.Message
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotEmpty(t, reply.ID)
	require.JSONEq(t, `[{"deviceId":"ios-1","platform":"ios","deviceName":null,"connected":true}]`, string(reply.Result))
}

func TestExtensionEvalWithoutDevice(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeExtensionInit}))
	var ack protocol.Message
	require.NoError(t, conn.ReadJSON(&ack))

	require.NoError(t, conn.WriteJSON(protocol.Message{
		ID:     "e1",
		Method: protocol.MethodEval,
		Params: json.RawMessage(`{"code":"1+1"}`),
	}))
	var reply protocol.Message
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "e1", reply.ID)
	require.Contains(t, reply.Error, ErrNoDeviceConnected.Error())
}

func TestExtensionUnknownMethod(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Message{ID: "x", Method: "exec"}))
	var reply protocol.Message
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "x", reply.ID)
	require.Contains(t, reply.Error, "unknown method")
}

func TestExtensionEvalRelaysVerbatim(t *testing.T) {
	hub, url := startHub(t)
	requests := connectDevice(t, hub, url, "ios", "", func(m protocol.Message) protocol.Message {
		return protocol.Message{Result: json.RawMessage(`{"value":2}`)}
	})

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeExtensionInit}))
	var ack protocol.Message
	require.NoError(t, conn.ReadJSON(&ack))

	require.NoError(t, conn.WriteJSON(protocol.Message{
		ID:     "client-7",
		Method: protocol.MethodEval,
		Params: json.RawMessage(`{"deviceId":"ios-1","code":"1+1"}`),
	}))
	var reply protocol.Message
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "client-7", reply.ID)
	require.JSONEq(t, `{"value":2}`, string(reply.Result))

	forwarded := <-requests
	require.Equal(t, protocol.MethodEval, forwarded.Method)
	require.NotEqual(t, "client-7", forwarded.ID)
	var p protocol.EvalParams
	require.NoError(t, protocol.DecodeParams(forwarded.Params, &p))
	require.Equal(t, "1+1", p.Code)
}

func TestExtensionClient(t *testing.T) {
	hub, url := startHub(t)
	requests := connectDevice(t, hub, url, "android", "Pixel 8", func(m protocol.Message) protocol.Message {
		if m.Method == protocol.MethodQuery {
			return protocol.NewErrorReply("", "query failed")
		}
		return okReply(m)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	client, err := Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	devices, err := client.ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "Pixel 8", devices[0].Name())

	info, err := client.Lookup("", "android")
	require.NoError(t, err)
	require.Equal(t, "android-1", info.DeviceID)

	_, err = client.Lookup("", "ios")
	require.ErrorIs(t, err, ErrNoDeviceForPlatform)

	res, err := client.Call(info.DeviceID, protocol.MethodTap, protocol.PointParams{X: 5, Y: 6}, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(res))

	tap := <-requests
	var p protocol.PointParams
	require.NoError(t, protocol.DecodeParams(tap.Params, &p))
	require.Equal(t, 5.0, p.X)
	require.Equal(t, "android-1", p.DeviceID)

	_, err = client.Call(info.DeviceID, protocol.MethodQuery, protocol.QueryParams{Selector: "#a"}, time.Second)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, "query failed", remote.Message)
}

func TestExtensionClientCallTimesOutAtHub(t *testing.T) {
	hub, url := startHub(t)
	connectDevice(t, hub, url, "ios", "", func(m protocol.Message) protocol.Message {
		time.Sleep(300 * time.Millisecond)
		return okReply(m)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	client, err := Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Call("", protocol.MethodGetTree, nil, 50*time.Millisecond)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Contains(t, remote.Message, ErrRequestTimeout.Error())
}

func TestWithTargetMergesRouting(t *testing.T) {
	raw, err := withTarget(protocol.TypeTextParams{Text: "hi"}, protocol.Target{DeviceID: "ios-2", TimeoutMs: 500})
	require.NoError(t, err)
	require.JSONEq(t, `{"text":"hi","deviceId":"ios-2","timeoutMs":500}`, string(raw))

	raw, err = withTarget(nil, protocol.Target{})
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(raw))
}
