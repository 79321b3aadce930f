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

package storage

import (
	"context"

	"golang.org/x/time/rate"
)

// highShare is the fraction of a shared byte/s bucket reserved for
// HIGH-priority transfers; the remainder goes to LOW. Splitting the
// bucket up front rather than arbitrating per-request keeps the limiter
// lock-free per priority class.
const highShare = 0.75

// Limiter is a per-process token bucket shared by every backend opened
// against the same bandwidth budget, with tokens split between the
// HIGH and LOW priority classes. A nil *Limiter imposes no limit, so
// callers that don't configure bandwidth limiting can pass nil freely.
type Limiter struct {
	high *rate.Limiter
	low  *rate.Limiter
}

// NewLimiter builds a Limiter capped at bytesPerSecond, or returns nil
// (unlimited) when bytesPerSecond is not positive.
func NewLimiter(bytesPerSecond int) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	hi := max(int(float64(bytesPerSecond)*highShare), 1)
	lo := max(bytesPerSecond-hi, 1)

	return &Limiter{
		high: rate.NewLimiter(rate.Limit(hi), hi),
		low:  rate.NewLimiter(rate.Limit(lo), lo),
	}
}

// WaitN blocks until n bytes' worth of tokens are available in p's
// bucket, or ctx is done. A nil Limiter never blocks.
func (l *Limiter) WaitN(ctx context.Context, p Priority, n int) error {
	if l == nil || n <= 0 {
		return nil
	}

	bucket := l.low
	if p == PriorityHigh {
		bucket = l.high
	}

	// WaitN rejects a request larger than the bucket's burst size; a
	// single I/O chunk (compression/cipher block) should never exceed
	// it, but cap defensively so a future larger buffer degrades to a
	// wait-for-burst instead of an error.
	burst := bucket.Burst()
	for n > burst {
		if err := bucket.WaitN(ctx, burst); err != nil {
			return err
		}
		n -= burst
	}

	return bucket.WaitN(ctx, n)
}
