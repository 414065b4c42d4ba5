package store

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrPowerUpConsumed = errors.New("power-up already consumed")
	ErrPowerUpExpired  = errors.New("power-up expired")
	ErrTemplateMissing = errors.New("task template not found")
)
