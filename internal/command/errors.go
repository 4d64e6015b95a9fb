package command

import (
	"errors"
	"fmt"
	"time"
)

var ErrMaintenance = errors.New("maintenance mode is active")

type BlacklistedError struct {
	UserID string
	Reason string
}

func (e *BlacklistedError) Error() string {
	return fmt.Sprintf("user %s is blacklisted", e.UserID)
}

// NotRegisteredError is returned by economy commands for users without an
// account. Its message is shown to the user verbatim.
type NotRegisteredError struct {
	Message string
}

func (e *NotRegisteredError) Error() string {
	if e.Message == "" {
		return "You are not registered."
	}
	return e.Message
}

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Command %q is not found", e.Name)
}

type CheckFailureError struct {
	Command string
	Reason  string
}

func (e *CheckFailureError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("The check functions for command %s failed.", e.Command)
}

type NoPrivateMessageError struct {
	Command string
}

func (e *NoPrivateMessageError) Error() string {
	return "This command cannot be used in private messages."
}

type CooldownError struct {
	Command    string
	Cooldown   Cooldown
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("You are on cooldown. Try again in %.2fs", e.RetryAfter.Seconds())
}

type MissingArgumentError struct {
	Param Param
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s is a required argument that is missing.", e.Param.Name)
}

type DisabledError struct {
	Command string
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("%s command is disabled", e.Command)
}

type BadArgumentError struct {
	Param Param
	Value string
	Err   error
}

func (e *BadArgumentError) Error() string {
	if e.Err != nil && e.Param.Name == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("Converting to %q failed for parameter %q.", e.Param.Kind.String(), e.Param.Name)
}

func (e *BadArgumentError) Unwrap() error {
	return e.Err
}

// InvokeError wraps anything a handler returned or panicked with. Stack is
// only set for panics.
type InvokeError struct {
	Command string
	Err     error
	Stack   []byte
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("Command raised an exception: %v", e.Err)
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}
