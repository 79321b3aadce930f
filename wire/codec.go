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
	"net/url"
	"sort"
	"strconv"
	"strings"

	liberr "github.com/sabouaram/barsys/errors"
)

// encodeParams renders name=value pairs in a stable (sorted-by-key)
// order, each value percent-escaped so it can never introduce a space
// or newline into the single-line frame.
func encodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func decodeParams(fields []string) (map[string]string, liberr.Error) {
	if len(fields) == 0 {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, ErrorMalformedFrame.Error(nil)
		}
		v, uerr := url.QueryUnescape(value)
		if uerr != nil {
			return nil, ErrorMalformedFrame.Error(uerr)
		}
		out[name] = v
	}
	return out, nil
}

// encodeRequest renders "<id> <COMMAND> [name=value]*\n".
func encodeRequest(r Request) string {
	return strconv.FormatUint(r.ID, 10) + " " + r.Command + encodeParams(r.Params) + "\n"
}

// decodeRequest parses a line (delimiter already stripped) as a
// Request.
func decodeRequest(line string) (Request, liberr.Error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Request{}, ErrorMalformedFrame.Error(nil)
	}

	id, perr := strconv.ParseUint(fields[0], 10, 64)
	if perr != nil {
		return Request{}, ErrorMalformedFrame.Error(perr)
	}

	params, derr := decodeParams(fields[2:])
	if derr != nil {
		return Request{}, derr
	}

	return Request{ID: id, Command: fields[1], Params: params}, nil
}

// encodeResponse renders "<id> <completed 0|1> <errorCode> [name=value]*\n".
func encodeResponse(r Response) string {
	completed := "0"
	if r.Completed {
		completed = "1"
	}
	return strconv.FormatUint(r.ID, 10) + " " + completed + " " + strconv.Itoa(r.ErrorCode) + encodeParams(r.Params) + "\n"
}

// decodeResponse parses a line (delimiter already stripped) as a
// Response.
func decodeResponse(line string) (Response, liberr.Error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Response{}, ErrorMalformedFrame.Error(nil)
	}

	id, perr := strconv.ParseUint(fields[0], 10, 64)
	if perr != nil {
		return Response{}, ErrorMalformedFrame.Error(perr)
	}
	code, cerr := strconv.Atoi(fields[2])
	if cerr != nil {
		return Response{}, ErrorMalformedFrame.Error(cerr)
	}

	params, derr := decodeParams(fields[3:])
	if derr != nil {
		return Response{}, derr
	}

	return Response{ID: id, Completed: fields[1] == "1", ErrorCode: code, Params: params}, nil
}
