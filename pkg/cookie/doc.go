// Package cookie provides a cookie jar with plain, signed, and sealed
// value modes sharing one set of attribute defaults.
//
// Signed cookies (HMAC-SHA256) stay readable by the client but detect
// tampering; sealed cookies (AES-GCM) hide the value entirely. Both
// require a 32+ byte secret:
//
//	jar, err := cookie.New(cookie.WithSecret(secret), cookie.WithSecure(true))
//	jar.SetSigned(w, "uid", "42", 3600)
//	uid, err := jar.GetSigned(r, "uid")
package cookie
