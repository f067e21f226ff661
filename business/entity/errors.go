package entity

import (
	"github.com/pkg/errors"
)

var (
	ErrNoTrackLoaded     = errors.New("no track loaded")
	ErrTrackNotFound     = errors.New("track not found")
	ErrQueueEmpty        = errors.New("queue is empty")
	ErrPermissionDenied  = errors.New("media library permission not granted")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnknownCommand    = errors.New("unknown command")
)
