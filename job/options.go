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

package job

import (
	"strconv"

	"github.com/sabouaram/barsys/archive"
	"github.com/sabouaram/barsys/compress"
	"github.com/sabouaram/barsys/crypt"
	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/storage"
)

// Recognised Job.Options keys. A connector session relays these
// verbatim from JOB_OPTION_SET; they are also settable locally through
// Engine.SetOption.
const (
	OptCompressAlgorithm = "compress"        // none|deflate|bzip2|lzma
	OptCompressLevel     = "compress_level"  // integer
	OptVolumeSize        = "volume_size"     // integer bytes, 0 = unbounded
	OptSpillThreshold    = "spill_threshold" // integer bytes
	OptCryptAlgorithm    = "crypt_algorithm" // aes-128|aes-192|aes-256|twofish-128|twofish-256|blowfish|cast5|3des
	OptCryptPassphrase   = "crypt_passphrase"
	OptPriority          = "priority" // low|high
	OptVolumeBaseName    = "volume_base_name"
)

func parseCryptAlgorithm(s string) (crypt.Algorithm, bool) {
	switch s {
	case "aes-128":
		return crypt.AES128, true
	case "aes-192":
		return crypt.AES192, true
	case "aes-256":
		return crypt.AES256, true
	case "twofish-128":
		return crypt.Twofish128, true
	case "twofish-256":
		return crypt.Twofish256, true
	case "blowfish":
		return crypt.Blowfish, true
	case "cast5":
		return crypt.CAST5, true
	case "3des":
		return crypt.ThreeDES, true
	}
	return 0, false
}

func parsePriority(s string) storage.Priority {
	if s == "high" {
		return storage.PriorityHigh
	}
	return storage.PriorityLow
}

// buildWriterOptions translates j.Options into an archive.WriterOptions,
// defaulting VolumeBaseName to the job's own name when unset.
func buildWriterOptions(j *Job) (archive.WriterOptions, liberr.Error) {
	opts := archive.WriterOptions{
		VolumeBaseName: j.Name,
	}
	if v, ok := j.Options[OptVolumeBaseName]; ok && v != "" {
		opts.VolumeBaseName = v
	}

	if v, ok := j.Options[OptCompressAlgorithm]; ok {
		alg, err := parseCompressAlgorithmStrict(v)
		if err != nil {
			return opts, err
		}
		opts.CompressAlgorithm = alg
	}
	if v, ok := j.Options[OptCompressLevel]; ok {
		n, cerr := strconv.Atoi(v)
		if cerr != nil {
			return opts, ErrorInvalidOption.Error(cerr)
		}
		opts.CompressLevel = n
	}
	if v, ok := j.Options[OptVolumeSize]; ok {
		n, cerr := strconv.ParseInt(v, 10, 64)
		if cerr != nil {
			return opts, ErrorInvalidOption.Error(cerr)
		}
		opts.VolumePartSize = n
	}
	if v, ok := j.Options[OptSpillThreshold]; ok {
		n, cerr := strconv.ParseInt(v, 10, 64)
		if cerr != nil {
			return opts, ErrorInvalidOption.Error(cerr)
		}
		opts.SpillThreshold = n
	}
	if v, ok := j.Options[OptPriority]; ok {
		opts.Priority = parsePriority(v)
	}

	algName, hasAlg := j.Options[OptCryptAlgorithm]
	pass, hasPass := j.Options[OptCryptPassphrase]
	if hasAlg && hasPass && pass != "" {
		alg, ok := parseCryptAlgorithm(algName)
		if !ok {
			return opts, ErrorInvalidOption.Error(nil)
		}
		opts.Crypt = archive.CryptConfig{
			Algorithm:  alg,
			Passphrase: crypt.NewPassphrase(pass),
		}
	}

	return opts, nil
}

func parseCompressAlgorithmStrict(s string) (compress.Algorithm, liberr.Error) {
	switch s {
	case "", "none":
		return compress.None, nil
	case "deflate":
		return compress.Deflate, nil
	case "bzip2":
		return compress.Bzip2, nil
	case "lzma":
		return compress.LZMA, nil
	}
	return compress.None, ErrorInvalidOption.Error(nil)
}
