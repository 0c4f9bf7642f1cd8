package db

import "fmt"

// Command names carried by OpError.
const (
	OpPing   = "PING"
	OpGet    = "GET"
	OpIncrBy = "INCRBY"
	OpExpire = "EXPIRE"
)

// OpError reports which command failed and on which key.
type OpError struct {
	Op  string
	Key string // empty for keyless commands
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("db %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("db %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
