package compress

import (
	"fmt"

	liberr "github.com/sabouaram/barsys/errors"
	pkgcode "github.com/sabouaram/barsys/internal/pkgcode"
)

const (
	ErrorInvalidLevel liberr.CodeError = iota + pkgcode.MinPkgCompress
	ErrorUnknownAlgorithm
	ErrorCompress
	ErrorDecompress
	ErrorAlreadyFinished
	ErrorDeltaSourceRequired
	ErrorDeltaCorrupt
)

func init() {
	if liberr.ExistInMapMessage(ErrorInvalidLevel) {
		panic(fmt.Errorf("error code collision golib/compress"))
	}
	liberr.RegisterIdFctMessage(ErrorInvalidLevel, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorInvalidLevel:
		return "compression level out of range for this algorithm"
	case ErrorUnknownAlgorithm:
		return "unknown compression algorithm"
	case ErrorCompress:
		return "error while compressing payload"
	case ErrorDecompress:
		return "error while decompressing payload"
	case ErrorAlreadyFinished:
		return "engine already finished, no more data accepted"
	case ErrorDeltaSourceRequired:
		return "delta stage enabled but no source entry was supplied"
	case ErrorDeltaCorrupt:
		return "delta stream is truncated or malformed"
	}
	return liberr.NullMessage
}
