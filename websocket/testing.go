package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/messages"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	// StreamPattern is the route that serves the realtime stream of a scene.
	StreamPattern = "/scenes/{id}/stream"

	defaultScenarioTimeout = time.Second * 5
)

// NewTestingEnv creates a testing environment to unit test handlers. It
// connects two clients to the scene with the given id. Both clients have
// joined the scene when it returns.
func NewTestingEnv(t *testing.T, sceneID uint32, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	closeLogs := SetTestingLogs(t)

	server := NewTestingServer(newHandler)

	clientA := DialTestingServer(t, server, sceneID)
	if err := NewScenario(clientA).Receive(FilterByType(messages.TypeSceneJoined)).Run(context.Background()); err != nil {
		t.Fatalf("client A did not join scene %v: %s", sceneID, err)
	}

	clientB := DialTestingServer(t, server, sceneID)
	if err := NewScenario(clientB).Receive(FilterByType(messages.TypeSceneJoined)).Run(context.Background()); err != nil {
		t.Fatalf("client B did not join scene %v: %s", sceneID, err)
	}

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		server.Close()
		closeLogs()
	}
}

// SetTestingLogs redirects the logs to the test logger until the returned
// function is called.
func SetTestingLogs(t *testing.T) func() {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
	}
}

// NewTestingServer starts a server that serves the scene streams with handlers
// created by newHandler.
func NewTestingServer(newHandler func() Handler) *httptest.Server {
	var mux http.ServeMux
	mux.Handle(StreamPattern, websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	return httptest.NewServer(&mux)
}

// DialTestingServer opens a connection to the stream of the given scene.
func DialTestingServer(t *testing.T, server *httptest.Server, sceneID uint32) *websocket.Conn {
	config, err := websocket.NewConfig(
		fmt.Sprintf("%s/scenes/%v/stream", strings.ReplaceAll(server.URL, "http://", "ws://"), sceneID),
		"http://localhost",
	)
	if err != nil {
		t.Fatalf("error initializing web socket: %s", err)
	}

	config.Header.Set("User-Agent", "ted")
	config.Header.Set(xForwardedForHeader, "192.0.0.0")
	config.Header.Set(ClientIDHeader, uuid.NewString())

	conn, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("error dialing web socket: %s", err)
	}
	return conn
}

// Filter reports whether a received message is the one a scenario waits for.
type Filter func(messages.Msg) bool

func FilterByType(t messages.Type) Filter {
	return func(msg messages.Msg) bool {
		return msg.Type == t
	}
}

func FilterByRequestID(id uint32) Filter {
	return func(msg messages.Msg) bool {
		return msg.RequestID == id
	}
}

// All combines filters. The returned filter matches the messages that match
// all of them.
func All(filters ...Filter) Filter {
	return func(msg messages.Msg) bool {
		for _, f := range filters {
			if !f(msg) {
				return false
			}
		}
		return true
	}
}

// Scenario is a sequence of messages sent and received by a client.
type Scenario struct {
	conn  *websocket.Conn
	steps []func(deadline time.Time) error
}

func NewScenario(conn *websocket.Conn) *Scenario {
	return &Scenario{conn: conn}
}

// Send sends msg when the scenario runs.
func (s *Scenario) Send(msg any) *Scenario {
	s.steps = append(s.steps, func(deadline time.Time) error {
		data, err := messages.Encode(msg)
		if err != nil {
			return err
		}
		return websocket.Message.Send(s.conn, string(data))
	})
	return s
}

// Receive waits for the first message that matches the filter and passes it to
// the given handlers. Messages that do not match are skipped.
func (s *Scenario) Receive(filter Filter, handlers ...func(messages.Msg) error) *Scenario {
	s.steps = append(s.steps, func(deadline time.Time) error {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return err
		}

		for {
			var data []byte
			if err := websocket.Message.Receive(s.conn, &data); err != nil {
				return err
			}

			msg, err := messages.Decode(data)
			if err != nil {
				return err
			}

			if !filter(msg) {
				continue
			}

			for _, h := range handlers {
				if err := h(msg); err != nil {
					return err
				}
			}
			return nil
		}
	})
	return s
}

// Run runs the scenario steps. Receptions fail when the context deadline, or a
// default timeout, is exceeded.
func (s *Scenario) Run(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultScenarioTimeout)
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := step(deadline); err != nil {
			return errors.New("scenario step failed").
				WithTag("step", i).
				Wrap(err)
		}
	}
	return nil
}
