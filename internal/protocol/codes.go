package protocol

// Status codes carried by response frames.
const (
	StatusOK                 = 200
	StatusBadRequest         = 400
	StatusUnauthorized       = 401
	StatusNotFound           = 404
	StatusTimeout            = 408
	StatusConflict           = 409
	StatusServerError        = 500
	StatusNotImplemented     = 501
	StatusServiceUnavailable = 503
)

// IsSuccess reports whether code is in the success range.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}
