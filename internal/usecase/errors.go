package usecase

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// 失敗の種類。HTTPステータスへの変換はhandlerだけが行う
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Messageはそのままクライアントへ返す
type AppError struct {
	Kind    Kind
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewAppError(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func invalidArgument(msg string) error { return NewAppError(KindInvalidArgument, msg) }
func forbidden(msg string) error       { return NewAppError(KindForbidden, msg) }
func notFound(msg string) error        { return NewAppError(KindNotFound, msg) }

// ストアの詳細は外に出さない
var errInternal = NewAppError(KindInternal, "internal error")

// ストアの失敗はログに残してInternalにする
func internalError(log logrus.FieldLogger, err error, msg string, fields logrus.Fields) error {
	log.WithFields(fields).WithError(err).Error(msg)
	return errInternal
}
