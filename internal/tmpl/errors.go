package tmpl

import "fastcodec/internal/fasterr"

var errNoRoot = fasterr.Staticf("", "", "templates document has no root element")

func staticf(code fasterr.Code, field, format string, args ...any) *fasterr.Error {
	return fasterr.Staticf(code, field, format, args...)
}
