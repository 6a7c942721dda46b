package chat

import (
	"errors"
	"fmt"
)

// Code is a stable error code callers can map to a user-facing
// status without string matching.
type Code string

const (
	CodeRoomNotFound    Code = "ROOM_NOT_FOUND"
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeNoPermission    Code = "NO_PERMISSION"
	CodeDuplicateMember Code = "DUPLICATE_MEMBER"
	CodeInternal        Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewRoomNotFoundError(roomId string) *Error {
	return &Error{
		Code:    CodeRoomNotFound,
		Message: fmt.Sprintf("room %q not found", roomId),
	}
}

func NewUserNotFoundError(userId int) *Error {
	return &Error{
		Code:    CodeUserNotFound,
		Message: fmt.Sprintf("user %d not found", userId),
	}
}

func NewNoPermissionError(roomId string, userId int) *Error {
	return &Error{
		Code:    CodeNoPermission,
		Message: fmt.Sprintf("user %d is not a member of room %q", userId, roomId),
	}
}

func NewDuplicateMemberError(roomId string, userId int) *Error {
	return &Error{
		Code:    CodeDuplicateMember,
		Message: fmt.Sprintf("user %d is already a member of room %q", userId, roomId),
	}
}

func NewInternalError(err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// CodeOf extracts the error code from err, or CodeInternal if err is
// not a chat error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeInternal
}
