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

package programmer

import "github.com/avrdudes/serialupdi/updi"

type config struct {
	baudrate       int
	rtsMode        updi.RTSMode
	strictKeyCheck bool
}

// Option adjusts the behaviour of a session.
type Option func(*config)

// WithBaudrate overrides the working baud rate. Zero keeps the
// default.
func WithBaudrate(baudrate int) Option {
	return func(c *config) { c.baudrate = baudrate }
}

// WithRTSMode forces the DTR/RTS line policy of the serial adapter.
func WithRTSMode(mode updi.RTSMode) Option {
	return func(c *config) { c.rtsMode = mode }
}

// WithStrictKeyCheck makes a key that is not acknowledged in the key
// status register a hard failure. By default the session presses on,
// since some devices complete the unlock anyway and the subsequent
// state checks catch real failures.
func WithStrictKeyCheck() Option {
	return func(c *config) { c.strictKeyCheck = true }
}
