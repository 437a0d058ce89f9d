package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/hireloop/hireloop/internal/realtime"
)

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

// handleWS attaches one client connection to the hub. The socket carries
// the authenticated user's notifications only; a user may hold several
// sockets at once and each gets every envelope.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	sub := s.Hub.Register(user.ID)
	defer s.Hub.Unregister(sub)

	ctx := conn.CloseRead(r.Context())
	if err := pumpEnvelopes(ctx, sub, conn); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func pumpEnvelopes(ctx context.Context, sub *realtime.Conn, writer wsWriter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub.Recv():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(env)
			if err != nil {
				return err
			}
			if err := writer.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		}
	}
}
