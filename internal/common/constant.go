package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the owner
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// FilenameHeaderName carries the original filename for gRPC uploads.
const FilenameHeaderName = "filename"

// SessionCookieName identifies the recipient session that owns OTP challenges.
const SessionCookieName = "sl_session"

// ContainerSuffix marks a path as a sealed container.
const ContainerSuffix = ".enc"
