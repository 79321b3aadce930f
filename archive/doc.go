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

// Package archive builds and parses the chunked, self-describing archive
// format: a BAR0 root chunk per volume, optionally wrapping a per-volume
// crypto setup chunk (SALT for symmetric, KEY0 for asymmetric), followed
// by a sequence of entry chunks (file, image, directory, symlink,
// hardlink, special). Each entry chunk opens with a META sub-chunk
// describing it and, for fragmentable kinds, carries one or more FDAT/
// IDAT data fragments already run through the delta, compression and
// encryption pipelines.
//
// An entry too large for one volume continues into the next as a fresh
// top-level chunk repeating the same META content; Writer never returns
// from an Add call until the whole entry has been written, so a given
// entry's chunks are always contiguous within and across volumes, and
// Reader merges them back together with a one-chunk lookahead.
package archive
