/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package wire implements the line-framed, asynchronous command/
// response protocol a master and a worker process exchange over one
// long-lived connection: every request carries its own sequence id, a
// worker may interleave responses in any order, and either side may
// send ABORT against an id it no longer wants to wait on.
package wire

import "time"

// DefaultTimeout bounds how long Session.Call waits for a response
// before treating the pending request as failed, absent a shorter
// deadline on the caller's context.
const DefaultTimeout = 10 * time.Minute

// EncryptType is AUTHORIZE's encryptType field: how encryptedUUID was
// produced.
type EncryptType uint8

const (
	EncryptNone EncryptType = iota
	EncryptRSA
)

func (e EncryptType) String() string {
	if e == EncryptRSA {
		return "RSA"
	}
	return "NONE"
}

func parseEncryptType(s string) (EncryptType, bool) {
	switch s {
	case "NONE":
		return EncryptNone, true
	case "RSA":
		return EncryptRSA, true
	}
	return EncryptNone, false
}

// Request is one command frame: "<id> <COMMAND> [name=value]*".
type Request struct {
	ID      uint64
	Command string
	Params  map[string]string
}

// Response is one reply frame: "<id> <completed 0|1> <errorCode> [name=value]*".
// Completed false with ErrorCode 0 marks a progress/partial update for
// a long-running command (e.g. JOB_STATUS polling feedback); the
// pending call only resolves once Completed is true.
type Response struct {
	ID        uint64
	Completed bool
	ErrorCode int
	Params    map[string]string
}

func (r Response) Param(name string) (string, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// HandshakeInfo is what Session.Handshake negotiates before any other
// command is accepted: the peer's protocol version and the identity it
// authorized under.
type HandshakeInfo struct {
	Major int
	Minor int
	Mode  string

	Name          string
	EncryptType   EncryptType
	EncryptedUUID string
}
