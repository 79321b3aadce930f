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

package wire

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/ioutils/delim"
	"github.com/sabouaram/barsys/ioutils/mapCloser"
	"github.com/sabouaram/barsys/logger"
	libsiz "github.com/sabouaram/barsys/size"
)

// Handler answers an incoming Request (a worker process's side of the
// session). A session with no Handler only ever originates calls
// (a master/connector's side).
type Handler func(ctx context.Context, req Request) Response

// pendingCall is one in-flight Call awaiting its response; ch receives
// the call's responses, progress updates included, and is closed
// without one when the session is closed.
type pendingCall struct {
	ch chan Response
}

// Session drives one line-framed connection: a read loop decoding
// frames and dispatching them to either a waiting Call (Response) or
// the registered Handler (Request), and a write side serialized by
// writeMu since both Call and the Handler's reply share the one
// underlying stream.
type Session struct {
	rw  io.ReadWriteCloser
	in  delim.BufferDelim
	log logger.Logger

	handler Handler

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]*pendingCall

	nextID uint64

	closer mapCloser.Closer
	ctx    context.Context
	cancel context.CancelFunc

	handshake HandshakeInfo
	authed    atomic.Bool
}

// New wraps rw in a Session. handler may be nil for a session that
// only ever calls out (never answers an incoming command).
func New(ctx context.Context, rw io.ReadWriteCloser, handler Handler, log logger.Logger) *Session {
	sctx, cancel := context.WithCancel(ctx)
	cl := mapCloser.New(sctx)
	cl.Add(rw)

	return &Session{
		rw:      rw,
		in:      delim.New(rw, '\n', 64*libsiz.KiB),
		log:     log,
		handler: handler,
		pending: map[uint64]*pendingCall{},
		closer:  cl,
		ctx:     sctx,
		cancel:  cancel,
	}
}

// Start spawns the read loop; the returned channel is closed once the
// loop exits (peer disconnected, the session was closed, or ctx was
// cancelled), so a caller (e.g. a connector polling a job) can select
// on it to notice a dropped connection without waiting on a specific
// Call.
func (s *Session) Start() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readLoop()
	}()
	return done
}

// Close tears down the session: every pending Call is woken with
// ErrorClosed, the handler loop's reader unblocks, and the underlying
// connection is closed.
func (s *Session) Close() error {
	s.cancel()

	s.pendingMu.Lock()
	for id, p := range s.pending {
		close(p.ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	return s.closer.Close()
}

func (s *Session) newID() uint64 {
	return atomic.AddUint64(&s.nextID, 1)
}

func (s *Session) writeLine(line string) liberr.Error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := io.WriteString(s.rw, line); err != nil {
		return ErrorClosed.Error(err)
	}
	return nil
}

// Call sends command with params and blocks until a Completed response
// arrives, ctx is done, or DefaultTimeout elapses (whichever is
// sooner a caller wanting a shorter bound should derive ctx with
// context.WithTimeout itself).
func (s *Session) Call(ctx context.Context, command string, params map[string]string) (Response, liberr.Error) {
	id := s.newID()
	p := &pendingCall{ch: make(chan Response, 1)}

	s.pendingMu.Lock()
	s.pending[id] = p
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	if werr := s.writeLine(encodeRequest(Request{ID: id, Command: command, Params: params})); werr != nil {
		return Response{}, werr
	}

	timeout := time.NewTimer(DefaultTimeout)
	defer timeout.Stop()

	for {
		select {
		case resp, ok := <-p.ch:
			if !ok {
				return Response{}, ErrorClosed.Error(nil)
			}
			if !resp.Completed {
				// a progress update; keep waiting for the terminal frame
				continue
			}
			if resp.ErrorCode != 0 {
				return resp, ErrorUnknownCommand.Error(nil)
			}
			return resp, nil
		case <-ctx.Done():
			_ = s.Abort(id)
			return Response{}, ErrorTimeout.Error(ctx.Err())
		case <-timeout.C:
			_ = s.Abort(id)
			return Response{}, ErrorTimeout.Error(nil)
		case <-s.ctx.Done():
			return Response{}, ErrorClosed.Error(nil)
		}
	}
}

// Abort sends "ABORT id=<id>" against a previously issued call this
// side no longer wants to wait on; it does not itself wait for a
// reply.
func (s *Session) Abort(id uint64) liberr.Error {
	return s.writeLine(encodeRequest(Request{
		ID:      s.newID(),
		Command: "ABORT",
		Params:  map[string]string{"id": strconv.FormatUint(id, 10)},
	}))
}

// Handshake performs the VERSION/AUTHORIZE exchange a fresh connection
// must complete before any other command is honoured.
func (s *Session) Handshake(ctx context.Context, major, minor int, name string, encType EncryptType, encryptedUUID string) (HandshakeInfo, liberr.Error) {
	vresp, verr := s.Call(ctx, "VERSION", map[string]string{
		"major": strconv.Itoa(major),
		"minor": strconv.Itoa(minor),
	})
	if verr != nil {
		return HandshakeInfo{}, verr
	}

	peerMajor, _ := strconv.Atoi(vresp.Params["major"])
	if peerMajor != major {
		return HandshakeInfo{}, ErrorVersionMismatch.Error(nil)
	}
	peerMinor, _ := strconv.Atoi(vresp.Params["minor"])

	aresp, aerr := s.Call(ctx, "AUTHORIZE", map[string]string{
		"encryptType":   encType.String(),
		"name":          name,
		"encryptedUUID": encryptedUUID,
	})
	if aerr != nil {
		return HandshakeInfo{}, aerr
	}
	if aresp.Params["authorized"] != "1" {
		return HandshakeInfo{}, ErrorNotAuthorized.Error(nil)
	}

	s.handshake = HandshakeInfo{
		Major: peerMajor, Minor: peerMinor, Mode: vresp.Params["mode"],
		Name: name, EncryptType: encType, EncryptedUUID: encryptedUUID,
	}
	s.authed.Store(true)
	return s.handshake, nil
}

// Authorized reports whether Handshake (or, on the accepting side, an
// inbound AUTHORIZE the Handler approved) has completed.
func (s *Session) Authorized() bool {
	return s.authed.Load()
}

// MarkAuthorized lets the accepting side's Handler record a successful
// inbound AUTHORIZE.
func (s *Session) MarkAuthorized(info HandshakeInfo) {
	s.handshake = info
	s.authed.Store(true)
}

func (s *Session) readLoop() {
	for {
		raw, rerr := s.in.ReadBytes()
		line := strings.TrimRight(string(raw), "\r\n")

		if line != "" {
			s.dispatch(line)
		}

		if rerr != nil {
			if rerr != io.EOF {
				s.log.Warning("wire: read loop ended", logger.Fields{"error": rerr.Error()})
			}
			_ = s.Close()
			return
		}
	}
}

func (s *Session) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}

	if looksLikeResponse(fields) {
		resp, derr := decodeResponse(line)
		if derr != nil {
			s.log.Warning("wire: malformed response frame", logger.Fields{"line": line})
			return
		}
		s.deliver(resp)
		return
	}

	req, derr := decodeRequest(line)
	if derr != nil {
		s.log.Warning("wire: malformed request frame", logger.Fields{"line": line})
		return
	}

	if req.Command == "ABORT" {
		// ABORT is advisory and carries no response of its own; it is
		// dropped here, and a handler already running for the aborted id
		// is not told about it.
		return
	}

	if s.handler == nil {
		_ = s.writeLine(encodeResponse(Response{ID: req.ID, Completed: true, ErrorCode: int(ErrorUnknownCommand)}))
		return
	}

	go func() {
		resp := s.handler(s.ctx, req)
		resp.ID = req.ID
		_ = s.writeLine(encodeResponse(resp))
	}()
}

func looksLikeResponse(fields []string) bool {
	if len(fields) < 3 {
		return false
	}
	if fields[1] != "0" && fields[1] != "1" {
		return false
	}
	_, err := strconv.Atoi(fields[2])
	return err == nil
}

func (s *Session) deliver(resp Response) {
	s.pendingMu.Lock()
	p, ok := s.pending[resp.ID]
	s.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case p.ch <- resp:
	default:
	}
}
