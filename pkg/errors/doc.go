// Package errors provides structured error handling with error codes for simple-account.
//
// Every failure returned by the account service is an *Error carrying one of
// the codes below, so callers can branch on the code instead of the message:
//
//	err := svc.CreateAccount(ctx, input, account.UserTypeSystem)
//	switch {
//	case errors.IsCode(err, errors.ErrCodeInvalidParam):
//		// missing username or password
//	case errors.IsCode(err, errors.ErrCodeDuplicateEntity):
//		// (username, user type) already taken
//	case errors.IsCode(err, errors.ErrCodePersistenceFailure):
//		// a store write failed; the transaction was rolled back
//	}
//
// # Error Codes
//
//   - ErrCodeInvalidParam: required input missing (HTTP 400)
//   - ErrCodeNotFound: read of a nonexistent entity (HTTP 404)
//   - ErrCodeDuplicateEntity: uniqueness violation on create (HTTP 409)
//   - ErrCodePersistenceFailure: a store write reported failure (HTTP 500)
//   - ErrCodeInternal: fallback for unstructured errors (HTTP 500)
//
// Wrapped errors stay reachable through errors.Is and errors.As from the
// standard library, since *Error implements Unwrap.
package errors
