// Package peercall coordinates peer-to-peer calls: signaling exchange,
// call lifecycle, SDP negotiation, and prioritized media streams.
//
// Service is the top-level entry point. It binds a call manager to a
// signaling transport and runs the receive loop that turns inbound
// signaling messages into call state changes.
package peercall

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/call"
	"github.com/opd-ai/peercall/signaling"
)

// Service drives calls for one local peer.
type Service[P signaling.PeerID] struct {
	manager *call.Manager[P]
	handler *signaling.Handler[P]
}

// NewService creates a service over the given negotiation backend and
// signaling transport.
func NewService[P signaling.PeerID](config call.Config, negotiator call.Negotiator, transport signaling.Transport[P]) (*Service[P], error) {
	handler, err := signaling.NewHandler[P](transport)
	if err != nil {
		return nil, err
	}
	manager, err := call.NewManager[P](config, negotiator, handler)
	if err != nil {
		return nil, err
	}
	return &Service[P]{manager: manager, handler: handler}, nil
}

// Manager exposes the underlying call manager.
func (s *Service[P]) Manager() *call.Manager[P] {
	return s.manager
}

// Call starts an outbound call to the peer.
func (s *Service[P]) Call(ctx context.Context, peer P, constraints call.MediaConstraints) (call.CallID, error) {
	return s.manager.InitiateCall(ctx, peer, constraints)
}

// Accept answers an inbound call.
func (s *Service[P]) Accept(ctx context.Context, id call.CallID, constraints call.MediaConstraints) error {
	return s.manager.AcceptCall(ctx, id, constraints)
}

// Reject declines an inbound call.
func (s *Service[P]) Reject(ctx context.Context, id call.CallID) error {
	return s.manager.RejectCall(ctx, id)
}

// HangUp ends a call.
func (s *Service[P]) HangUp(ctx context.Context, id call.CallID) error {
	return s.manager.EndCall(ctx, id)
}

// CallState reports the state of a call, if registered.
func (s *Service[P]) CallState(id call.CallID) (call.State, bool) {
	return s.manager.CallState(id)
}

// SubscribeEvents registers a call event listener.
func (s *Service[P]) SubscribeEvents() (<-chan call.Event[P], func()) {
	return s.manager.SubscribeEvents()
}

// Close tears down every call and the event hub. The receive loop, if
// running, keeps going until its context is cancelled.
func (s *Service[P]) Close() {
	s.manager.Close()
}

// Run receives signaling messages until the context is cancelled or
// the transport fails. Malformed messages are logged and skipped;
// per-call dispatch errors never stop the loop.
func (s *Service[P]) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "Service.Run",
	}).Info("Signaling receive loop started")

	for {
		peer, msg, err := s.handler.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, signaling.ErrInvalidMessage) {
				logrus.WithFields(logrus.Fields{
					"function": "Service.Run",
					"error":    err.Error(),
				}).Warn("Dropping malformed signaling message")
				continue
			}
			logrus.WithFields(logrus.Fields{
				"function": "Service.Run",
				"error":    err.Error(),
			}).Error("Signaling receive failed")
			return err
		}
		s.dispatch(ctx, peer, msg)
	}
}

// dispatch routes one inbound message to the call manager.
func (s *Service[P]) dispatch(ctx context.Context, peer P, msg signaling.Message) {
	var err error
	switch m := msg.(type) {
	case signaling.Offer:
		_, err = s.manager.HandleIncomingOffer(peer, m)

	case signaling.Answer:
		var id call.CallID
		if id, err = call.ParseCallID(m.Session); err == nil {
			err = s.manager.HandleAnswer(ctx, id, m.SDP)
		}

	case signaling.IceCandidate:
		var id call.CallID
		if id, err = call.ParseCallID(m.Session); err == nil {
			err = s.manager.AddICECandidate(id, m.Candidate, m.SDPMid, m.MLineIndex)
		}

	case signaling.IceComplete:
		logrus.WithFields(logrus.Fields{
			"function":   "Service.dispatch",
			"session_id": m.Session,
			"peer":       peer.String(),
		}).Debug("ICE gathering complete on remote side")

	case signaling.Bye:
		reason := ""
		if m.Reason != nil {
			reason = *m.Reason
		}
		var id call.CallID
		if id, err = call.ParseCallID(m.Session); err == nil {
			err = s.manager.HandleRemoteBye(id, reason)
		}

	default:
		logrus.WithFields(logrus.Fields{
			"function":     "Service.dispatch",
			"message_type": msg.Type(),
		}).Warn("Unhandled signaling message type")
	}

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":     "Service.dispatch",
			"message_type": msg.Type(),
			"session_id":   msg.SessionID(),
			"peer":         peer.String(),
			"error":        err.Error(),
		}).Warn("Failed to handle signaling message")
	}
}
