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

package scheduler

import (
	"context"
	"sync"
	"time"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/job"
	"github.com/sabouaram/barsys/logger"
)

// catchUpLimit bounds how many missed minutes a single tick will
// replay. A rule whose LastCheckTime has drifted further than this
// behind "now" (monitor restarted after days down, clock jump, ...)
// has its clock fast-forwarded to now with a warning logged instead of
// iterating minute by minute over the whole gap.
const catchUpLimit = 7 * 24 * time.Hour

// Scheduler wakes on a fixed tick, and on each wake evaluates every
// enabled rule against each minute between its LastCheckTime and now,
// starting the owning job on the first match. It runs as a single
// ticker-driven goroutine, stopped by Stop or by cancelling the context
// it was built with.
type Scheduler struct {
	mu sync.Mutex

	je  *job.Engine
	log logger.Logger

	rules map[string]*Rule
	order []string

	interval time.Duration
	ticker   *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	nextID uint64
}

// New builds a Scheduler driving je, ticking once per interval (zero
// defaults to one minute, matching the "wakes at least once a minute"
// contract).
func New(ctx context.Context, je *job.Engine, log logger.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Scheduler{
		je:       je,
		log:      log,
		rules:    map[string]*Rule{},
		interval: interval,
		ctx:      ctx,
	}
}

func (s *Scheduler) newID() string {
	s.nextID++
	return "rule-" + time.Now().Format("20060102150405") + "-" + itoa(s.nextID)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// AddRule registers rule, assigning it an ID if empty, and defaulting
// LastCheckTime to now so it only fires on minutes from here forward.
func (s *Scheduler) AddRule(rule Rule) (string, liberr.Error) {
	if rule.JobID == "" {
		return "", ErrorInvalidRule.Error(nil)
	}
	if rule.Hour != AnyHour && (rule.Hour < 0 || rule.Hour > 23) {
		return "", ErrorInvalidRule.Error(nil)
	}
	if rule.Minute != AnyMinute && (rule.Minute < 0 || rule.Minute > 59) {
		return "", ErrorInvalidRule.Error(nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = s.newID()
	} else if _, exists := s.rules[rule.ID]; exists {
		return "", ErrorInvalidRule.Error(nil)
	}
	if rule.LastCheckTime.IsZero() {
		rule.LastCheckTime = time.Now()
	}

	r := rule
	s.rules[r.ID] = &r
	s.order = append(s.order, r.ID)
	return r.ID, nil
}

// RemoveRule drops a previously added rule.
func (s *Scheduler) RemoveRule(id string) liberr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return ErrorRuleNotFound.Error(nil)
	}
	delete(s.rules, id)
	for i, rid := range s.order {
		if rid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rules returns a snapshot of every registered rule, in registration
// order.
func (s *Scheduler) Rules() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rules[id])
	}
	return out
}

// Start spawns the ticker loop. Calling Start twice returns
// ErrorAlreadyStarted.
func (s *Scheduler) Start() liberr.Error {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return ErrorAlreadyStarted.Error(nil)
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.ticker = time.NewTicker(s.interval)
	s.cancel = cancel
	s.done = make(chan struct{})
	ticker := s.ticker
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.tick(now)
			}
		}
	}()

	return nil
}

// Stop halts the ticker loop and blocks until its goroutine has
// returned.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	ticker := s.ticker
	cancel := s.cancel
	done := s.done
	s.ticker = nil
	s.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	cancel()
	<-done
}

// tick evaluates every enabled rule whose job is not already active
// against each minute strictly after its LastCheckTime up to and
// including now, starting the job on the first match and then always
// advancing LastCheckTime to now — whether or not a match was found —
// so a later wakeup never replays a minute this one already covered.
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		r, ok := s.rules[id]
		if !ok {
			s.mu.Unlock()
			continue
		}
		rule := *r
		s.mu.Unlock()

		if !rule.Enabled {
			s.mu.Lock()
			if r, ok := s.rules[id]; ok {
				r.LastCheckTime = now
			}
			s.mu.Unlock()
			continue
		}

		matched := s.evaluate(rule, now)

		s.mu.Lock()
		if r, ok := s.rules[id]; ok {
			r.LastCheckTime = now
		}
		s.mu.Unlock()

		if matched {
			if _, err := s.je.JobStatus(rule.JobID); err == nil {
				if serr := s.je.StartScheduledJob(rule.JobID, rule.ArchiveType, rule.ID); serr != nil {
					s.log.Error("scheduled start failed", serr, logger.Fields{"rule": rule.ID, "job": rule.JobID})
				}
			}
		}
	}
}

// evaluate walks every minute strictly after rule.LastCheckTime
// through now, returning true on (and stopping at) the first match so
// a rule with hour=3 minute=0 fires exactly once even when several of
// its candidate minutes were missed while the process was asleep.
func (s *Scheduler) evaluate(rule Rule, now time.Time) bool {
	from := rule.LastCheckTime
	if from.IsZero() || now.Sub(from) > catchUpLimit {
		if !from.IsZero() {
			s.log.Warning("scheduler: rule fell too far behind, skipping catch-up replay", logger.Fields{
				"rule": rule.ID, "job": rule.JobID, "behind": now.Sub(from).String(),
			})
		}
		return rule.Matches(now)
	}

	status, serr := s.je.JobStatus(rule.JobID)
	if serr == nil && status.State.Active() {
		return false
	}

	t := from.Truncate(time.Minute).Add(time.Minute)
	for !t.After(now) {
		if rule.Matches(t) {
			return true
		}
		t = t.Add(time.Minute)
	}
	return false
}
