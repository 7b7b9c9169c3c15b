package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/messages"
	"github.com/aukilabs/spatial/models"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Receiver receives a message from a client. It returns the number of bytes
// read.
type Receiver func() (messages.Msg, int, error)

// Sender sends a message to a client. It returns the number of bytes written.
type Sender func(msg any) (int, error)

// Handler represents a realtime scene handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Makes the connected client join the requested scene as a participant.
	HandleJoin(ctx context.Context, respond models.ResponseSender) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error

	// Handles a request to create an entity.
	HandleEntityAdd(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error

	// Handles an entity pose update.
	HandleEntityUpdatePose(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error

	// Handles a request to delete an entity.
	HandleEntityDelete(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error

	// Handles a spatial query over the scene entities.
	HandleQuery(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender passed in service methods in order to send
	// messages.
	Sender() Sender

	// Closes the service and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// The currently joined scene.
	CurrentScene() *models.Scene

	// The current participant.
	CurrentParticipant() *models.Participant

	GetClientID() string
}

// Handle handles the given service.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	Handler Handler

	sendChan       chan any
	receiveChan    chan messages.Msg
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	h.sendChan = make(chan any, sendChanSize)
	h.sender = h.Handler.Sender()

	responder := responseSender{
		ctx:      ctx,
		sendChan: h.sendChan,
	}

	if err := h.Handler.HandleJoin(ctx, responder); err != nil {
		h.sender(messages.NewError(0, err))
		h.handleDisconnect(errors.New("joining scene failed").Wrap(err))
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan messages.Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx, responder)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.handleDisconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			h.handleMessage(ctx, msg, responder)

		case err := <-h.disconnectChan:
			// Messages queued for this connection are dropped from now on.
			cancel()
			h.handleDisconnect(err)
		}
	}

	wg.Wait()
}

func (h *handler) startSending(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if req, ok := msg.(closeRequest); ok {
				h.sender(messages.NewError(0, req.reason))
				h.disconnect(req.reason)
				return
			}

			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context, responder models.ResponseSender) {
	for ctx.Err() == nil {
		msg, _, err := h.receiver()
		if errors.IsType(err, messages.ErrTypeMsgInvalid) {
			responder.Send(messages.NewError(0, err))
			continue
		}
		if err != nil {
			h.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case h.receiveChan <- msg:
		}
	}
}

// handleMessage runs the handler method that matches the message type. Errors
// are reported to the client and keep the connection open.
func (h *handler) handleMessage(ctx context.Context, msg messages.Msg, responder models.ResponseSender) {
	var err error

	switch msg.Type {
	case messages.TypePing:
		err = h.Handler.HandlePing(ctx, responder, msg)

	case messages.TypeEntityAdd:
		err = h.Handler.HandleEntityAdd(ctx, responder, msg)

	case messages.TypeEntityUpdatePose:
		err = h.Handler.HandleEntityUpdatePose(ctx, responder, msg)

	case messages.TypeEntityDelete:
		err = h.Handler.HandleEntityDelete(ctx, responder, msg)

	case messages.TypeQuery:
		err = h.Handler.HandleQuery(ctx, responder, msg)

	default:
		err = errors.New("unknown message type").
			WithType(messages.ErrTypeMsgTypeUnknown).
			WithTag("msg_type", msg.Type)
	}

	if err != nil {
		logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
			WithTag("msg_type", msg.Type).
			WithTag("request_id", msg.RequestID).
			Debug(err)
		responder.Send(messages.NewError(msg.RequestID, err))
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

// responseSender queues messages for the connection it belongs to. Messages
// sent after the connection is closed are dropped.
type responseSender struct {
	ctx      context.Context
	sendChan chan any
}

func (r responseSender) Send(msg any) {
	select {
	case <-r.ctx.Done():
	case r.sendChan <- msg:
	}
}

func (r responseSender) Close(reason error) {
	r.Send(closeRequest{reason: reason})
}

// closeRequest makes the sending goroutine report reason to the client as an
// error message, then disconnect it.
type closeRequest struct {
	reason error
}
