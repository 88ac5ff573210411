package storage

import "errors"

var (
	ErrBatchNotFound = errors.New("batch not found")
	ErrBatchExists   = errors.New("batch id already stored")
)
