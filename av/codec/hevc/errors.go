// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"github.com/pkg/errors"
)

// Error is the closed set of decoding faults reported to clients.
type Error int

// 解码错误码
const (
	ErrNoSuchFile Error = iota + 1
	ErrNoStartCode
	ErrEOF
	ErrCoefficientOutOfImageBounds
	ErrChecksumMismatch
	ErrCtbOutsideImageArea
	ErrUnsupported
	ErrInvalidParameterSet
	ErrInternal
)

var errorText = [...]string{
	0:                              "no error",
	ErrNoSuchFile:                  "no such file",
	ErrNoStartCode:                 "no startcode found in bitstream",
	ErrEOF:                         "unexpected end of file",
	ErrCoefficientOutOfImageBounds: "coefficient out of image bounds",
	ErrChecksumMismatch:            "image checksum mismatch",
	ErrCtbOutsideImageArea:         "CTB outside of image area",
	ErrUnsupported:                 "unsupported stream feature",
	ErrInvalidParameterSet:         "invalid parameter set",
	ErrInternal:                    "internal decoder error",
}

func (e Error) Error() string {
	if e < 0 || int(e) >= len(errorText) {
		return "unknown error"
	}
	return errorText[e]
}

// ErrorString returns the message of err, nil reads as "no error".
// Wrapped errors report the message of their cause.
func ErrorString(err error) string {
	if err == nil {
		return errorText[0]
	}
	if e, ok := errors.Cause(err).(Error); ok {
		return e.Error()
	}
	return err.Error()
}

// IsError reports whether the cause of err is the decoding fault e.
func IsError(err error, e Error) bool {
	if err == nil {
		return false
	}
	c, ok := errors.Cause(err).(Error)
	return ok && c == e
}
