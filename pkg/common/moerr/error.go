// Copyright 2021 - 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moerr

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

const MySQLDefaultSqlState = "HY000"

const (
	// 0 - 99 is OK.  They do not contain info, and are special handled
	// using a static instance, no alloc.
	Ok uint16 = 0

	// Group 1: Internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101
	ErrNYI      uint16 = 20102

	// Group 3: invalid input
	ErrBadConfig    uint16 = 20300
	ErrInvalidInput uint16 = 20301
	ErrDuplicate    uint16 = 20305

	// Group 4: unexpected state and catalog errors
	ErrInvalidState      uint16 = 20400
	ErrCatalogPermission uint16 = 20472
	ErrDependentObjects  uint16 = 20473
	ErrNoSuchEntry       uint16 = 20474

	// Group 6: txn
	// ErrTxnClosed read and write a transaction that has been committed or rolled back.
	ErrTxnClosed uint16 = 20600
	// ErrTxnWWConflict write-write conflict between concurrent transactions,
	// the whole transaction can be retried by the caller.
	ErrTxnWWConflict uint16 = 20619

	// ErrEnd, the max value of MOErrorCode
	ErrEnd uint16 = 65535
)

type moErrorMsgItem struct {
	sqlStates        []string
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]moErrorMsgItem{
	// Group 1: Internal errors
	ErrStart:    {[]string{MySQLDefaultSqlState}, "internal error: error code start"},
	ErrInternal: {[]string{MySQLDefaultSqlState}, "internal error: %s"},
	ErrNYI:      {[]string{MySQLDefaultSqlState}, "%s is not yet implemented"},

	// Group 3: invalid input
	ErrBadConfig:    {[]string{MySQLDefaultSqlState}, "invalid configuration: %s"},
	ErrInvalidInput: {[]string{MySQLDefaultSqlState}, "invalid input: %s"},
	ErrDuplicate:    {[]string{"23000"}, "duplicate %s"},

	// Group 4: unexpected state and catalog errors
	ErrInvalidState:      {[]string{MySQLDefaultSqlState}, "invalid state %s"},
	ErrCatalogPermission: {[]string{"42000"}, "catalog error: %s"},
	ErrDependentObjects:  {[]string{"2BP01"}, "cannot drop %s because other objects depend on it: %s"},
	ErrNoSuchEntry:       {[]string{"42S02"}, "catalog entry %s.%s does not exist"},

	// Group 6: txn
	ErrTxnClosed:     {[]string{MySQLDefaultSqlState}, "the transaction %s has been committed or aborted"},
	ErrTxnWWConflict: {[]string{"40001"}, "w-w conflict"},

	// Group End: max value of MOErrorCode
	ErrEnd: {[]string{MySQLDefaultSqlState}, "internal error: end of errcode code"},
}

type ctxKey int

const detailKey ctxKey = 0

// WithDetail returns a ctx whose errors carry the given detail, e.g. the
// transaction that raised them.
func WithDetail(ctx context.Context, detail string) context.Context {
	return context.WithValue(ctx, detailKey, detail)
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	var err *Error
	item, has := errorMsgRefer[code]
	if !has {
		panic(NewInternalError(ctx, "not exist MOErrorCode: %d", code))
	}
	if len(args) == 0 {
		err = &Error{
			code:     code,
			message:  item.errorMsgOrFormat,
			sqlState: item.sqlStates[0],
		}
	} else {
		err = &Error{
			code:     code,
			message:  fmt.Sprintf(item.errorMsgOrFormat, args...),
			sqlState: item.sqlStates[0],
		}
	}
	if ctx != nil {
		if detail, ok := ctx.Value(detailKey).(string); ok {
			err.detail = detail
		}
	}
	return err
}

type Error struct {
	code     uint16
	message  string
	sqlState string
	detail   string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) Display() string {
	if len(e.detail) == 0 {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.detail)
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) SqlState() string {
	return e.sqlState
}

// Retryable reports whether the transaction that hit e may be retried as a
// whole.
func (e *Error) Retryable() bool {
	return e.code == ErrTxnWWConflict
}

func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}

	var me *Error
	if !errors.As(e, &me) {
		// This is not a moerr
		return false
	}
	return me.code == rc
}

func DowncastError(e error) *Error {
	var me *Error
	if errors.As(e, &me) {
		return me
	}
	return newError(Context(), ErrInternal, fmt.Sprintf("downcast error failed: %v", e))
}

// ConvertPanicError converts a runtime panic to internal error.
func ConvertPanicError(ctx context.Context, v interface{}) *Error {
	if e, ok := v.(*Error); ok {
		return e
	}
	return newError(ctx, ErrInternal, fmt.Sprintf("panic %v: %s", v, debug.Stack()))
}

// ConvertGoError converts a go error into mo error.
// Note here we must return error, because nil error
// is the same as nil *Error -- Go strangeness.
func ConvertGoError(ctx context.Context, err error) error {
	// nil is nil
	if err == nil {
		return err
	}

	// already a moerr, return it as is
	var me *Error
	if errors.As(err, &me) {
		return err
	}

	return NewInternalError(ctx, "convert go error to mo error %v", err)
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInternal, xmsg)
}

func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrNYI, xmsg)
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrBadConfig, xmsg)
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidInput, xmsg)
}

func NewDuplicate(ctx context.Context, what string) *Error {
	return newError(ctx, ErrDuplicate, what)
}

func NewInvalidState(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidState, xmsg)
}

func NewCatalogPermission(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrCatalogPermission, xmsg)
}

func NewDependentObjects(ctx context.Context, name string, dependents string) *Error {
	return newError(ctx, ErrDependentObjects, name, dependents)
}

func NewNoSuchEntry(ctx context.Context, set, name string) *Error {
	return newError(ctx, ErrNoSuchEntry, set, name)
}

func NewTxnClosed(ctx context.Context, txnID string) *Error {
	return newError(ctx, ErrTxnClosed, txnID)
}

func NewTxnWWConflict(ctx context.Context, op string, name string) *Error {
	e := newError(ctx, ErrTxnWWConflict)
	if e.detail == "" {
		e.detail = fmt.Sprintf("catalog %s with %q", op, name)
	} else {
		e.detail = fmt.Sprintf("%s, catalog %s with %q", e.detail, op, name)
	}
	return e
}

var contextFunc atomic.Value

func SetContextFunc(f func() context.Context) {
	contextFunc.Store(f)
}

// Context returns the context used for errors raised without one.
func Context() context.Context {
	return contextFunc.Load().(func() context.Context)()
}

func init() {
	SetContextFunc(func() context.Context { return context.Background() })
}
