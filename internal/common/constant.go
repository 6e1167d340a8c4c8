package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// SuccessMessage is the message of every successful operation that has
// nothing else to return: registration and recertification.
const SuccessMessage = "success"
