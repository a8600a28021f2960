// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
// The last dotted segment is the reason used for classification.
type Code string

const (
	CodeStoreVectorSaveInvalid     Code = "store.vector.save.invalid_input"
	CodeStoreVectorQueryInvalid    Code = "store.vector.query.invalid_input"
	CodeStoreVectorWriteFailure    Code = "store.vector.write.failure"
	CodeStoreVectorReadFailure     Code = "store.vector.read.failure"
	CodeStoreConnectionFailure     Code = "store.connection.failure"
	CodeStoreSchemaFailure         Code = "store.schema.failure"
	CodeStoreExtensionUnavailable  Code = "store.extension.unavailable"
	CodeStoreBackendUnsupported    Code = "store.backend.unsupported"
	CodeStoreNotReady              Code = "store.lifecycle.not_ready"
	CodeEmbeddingValidateInvalid   Code = "embedding.validate.invalid"
	CodeSnapshotReadFailure        Code = "snapshot.read.failure"
	CodeSnapshotWriteFailure       Code = "snapshot.write.failure"
	CodeSnapshotRecordInvalid      Code = "snapshot.record.invalid_format"
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeServerInternalFailure      Code = "server.internal.failure"
	CodeServerConfigInvalid        Code = "server.config.invalid"
	CodeServerStartFailure         Code = "server.start.failure"
	CodeServerShutdownFailure      Code = "server.shutdown.failure"
	CodeCLISetupFailure            Code = "cli.setup.failure"
	CodeCLIInputInvalid            Code = "cli.input.invalid"
	CodeCLIConfirmationRequired    Code = "cli.confirmation.required"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldVectorID(value string) Attr {
	return Field("vector_id", value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldStrategy(value string) Attr {
	return Field("strategy", value)
}

func FieldBatch(value int) Attr {
	return Field("batch", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUnavailable(err error) bool {
	r := reason(CodeOf(err))
	return r == "unavailable" || r == "not_ready"
}

func IsFailure(err error) bool {
	return reason(CodeOf(err)) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeServerInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
