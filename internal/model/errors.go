package model

import (
	"github.com/pkg/errors"
)

var (
	ErrConfig          = errors.New("configuration error")
	ErrInvalidAction   = errors.New("invalid action")
	ErrParse           = errors.New("parse error")
	ErrUnknownModule   = errors.New("unknown module")
	ErrWrongParameter  = errors.New("wrong parameter")
	ErrNameCollision   = errors.New("name collision")
	ErrComponentExists = errors.New("component already exists")
	ErrConnection      = errors.New("connection error")
	ErrRemoteOperation = errors.New("remote operation failed")
)

// ErrMissingParameter is reported for absent mandatory arguments.
var ErrMissingParameter = ErrWrongParameter

// IsCollision reports whether err was caused by an already stored name.
func IsCollision(err error) bool {
	return errors.Is(err, ErrNameCollision) || errors.Is(err, ErrComponentExists)
}
