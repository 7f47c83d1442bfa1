package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// rpcServer runs a scripted JSON-RPC websocket endpoint.
func rpcServer(t *testing.T, handle func(conn *websocket.Conn, req rpcRequest) bool) (*httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req rpcRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			if !handle(conn, req) {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_Call(t *testing.T) {
	_, url := rpcServer(t, func(conn *websocket.Conn, req rpcRequest) bool {
		if req.Method != "system_health" {
			t.Errorf("method = %s", req.Method)
		}
		conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]any{"peers": 3},
		})
		return true
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	raw, err := client.Call(context.Background(), "system_health")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var health struct {
		Peers int `json:"peers"`
	}
	if err := json.Unmarshal(raw, &health); err != nil || health.Peers != 3 {
		t.Errorf("result = %s, err = %v", raw, err)
	}
}

func TestClient_CallRPCError(t *testing.T) {
	_, url := rpcServer(t, func(conn *websocket.Conn, req rpcRequest) bool {
		conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": 1010, "message": "bad extrinsic"},
		})
		return true
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	_, err = client.Call(context.Background(), "author_submitExtrinsic", "0x00")
	if err == nil || !strings.Contains(err.Error(), "bad extrinsic") {
		t.Errorf("err = %v, want rpc error surfaced", err)
	}
}

func TestClient_Subscribe(t *testing.T) {
	_, url := rpcServer(t, func(conn *websocket.Conn, req rpcRequest) bool {
		switch req.Method {
		case "chain_subscribeNewHeads":
			conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "sub-1"})
			conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"method":  "chain_newHead",
				"params":  map[string]any{"subscription": "sub-1", "result": map[string]any{"number": "0x2a"}},
			})
		case "chain_unsubscribeNewHeads":
			conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": true})
		}
		return true
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	ch, cancel, err := client.Subscribe(context.Background(), "chain_subscribeNewHeads", "chain_unsubscribeNewHeads")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	select {
	case msg := <-ch:
		var head struct {
			Number string `json:"number"`
		}
		if err := json.Unmarshal(msg, &head); err != nil || head.Number != "0x2a" {
			t.Errorf("notification = %s, err = %v", msg, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestClient_Close(t *testing.T) {
	_, url := rpcServer(t, func(conn *websocket.Conn, req rpcRequest) bool { return true })

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Double close should be safe.
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	if _, err := client.Call(context.Background(), "system_health"); err == nil {
		t.Error("expected error calling after close")
	}
}

func TestClient_Disconnected(t *testing.T) {
	server, url := rpcServer(t, func(conn *websocket.Conn, req rpcRequest) bool { return true })

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server.CloseClientConnections()

	select {
	case <-client.Disconnected():
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnected not signaled after server drop")
	}
}
