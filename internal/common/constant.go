package common

// AccessTokenHeaderName is the gRPC metadata key carrying the owner's
// access token.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName is the gRPC metadata key for a caller-supplied request id.
const RequestIDHeaderName = "x-request-id"
