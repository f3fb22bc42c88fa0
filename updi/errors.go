/*
	serialupdi
	Copyright (c) 2024 the serialupdi authors.  All right reserved.

	This library is free software; you can redistribute it and/or
	modify it under the terms of the GNU Lesser General Public
	License as published by the Free Software Foundation; either
	version 2.1 of the License, or (at your option) any later version.

	This library is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
	Lesser General Public License for more details.

	You should have received a copy of the GNU Lesser General Public
	License along with this library; if not, write to the Free Software
	Foundation, Inc., 51 Franklin St, Fifth Floor, Boston, MA  02110-1301  USA
*/

package updi

import (
	"errors"
	"fmt"
)

// Kind classifies a protocol failure so that callers can tell "retry is
// sensible" from "abort now" without matching on message text.
type Kind int

const (
	// KindTransport covers serial open/configure/send/receive failures.
	KindTransport Kind = iota + 1
	// KindFraming covers wrong ACK bytes, short or long responses and
	// other violations of the frame format.
	KindFraming
	// KindTimeout covers expired wait budgets: NVM-ready, unlock,
	// user-row mode transitions.
	KindTimeout
	// KindCapability covers negotiation failures such as an unknown NVM
	// version character or a malformed SIB.
	KindCapability
	// KindKeyRejected means a key was written but its status bit did not
	// assert.
	KindKeyRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFraming:
		return "framing"
	case KindTimeout:
		return "timeout"
	case KindCapability:
		return "capability"
	case KindKeyRejected:
		return "key rejected"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every layer of the UPDI stack.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func framingError(op, format string, args ...interface{}) error {
	return &Error{Kind: KindFraming, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// TimeoutError reports an expired wait budget; the message names the
// stage that stalled so the operator knows what to look at.
func TimeoutError(op, format string, args ...interface{}) error {
	return &Error{Kind: KindTimeout, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// CapabilityError reports a negotiation failure that must never be
// guessed around.
func CapabilityError(op, format string, args ...interface{}) error {
	return &Error{Kind: KindCapability, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KeyRejectedError reports a key whose status bit did not assert after
// the key was written.
func KeyRejectedError(op string) error {
	return &Error{Kind: KindKeyRejected, Op: op, Msg: "key was not accepted"}
}

func errorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTimeout reports whether err is a timeout-kind protocol error.
func IsTimeout(err error) bool { return errorKind(err) == KindTimeout }

// IsFraming reports whether err is a framing-kind protocol error.
func IsFraming(err error) bool { return errorKind(err) == KindFraming }

// IsTransport reports whether err is a transport-kind protocol error.
func IsTransport(err error) bool { return errorKind(err) == KindTransport }

// IsCapability reports whether err is a capability-kind protocol error.
func IsCapability(err error) bool { return errorKind(err) == KindCapability }

// IsKeyRejected reports whether err means a key status bit did not
// assert.
func IsKeyRejected(err error) bool { return errorKind(err) == KindKeyRejected }
