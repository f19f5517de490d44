package storage

import "errors"

var (
	ErrMemberExists   = errors.New("member already exists")
	ErrMemberNotFound = errors.New("member not found")
	ErrTokenExists    = errors.New("token key already exists")
	ErrTokenNotFound  = errors.New("token not found")
)
