package encryption

import cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"

var errNotEncrypted = cerrors.UnsupportedCiphertext("buffer does not carry the encrypted-payload magic header")
