// Package validator checks request and dependency structs using struct tags.
//
// Besides the stock go-playground rules it registers:
//
//	meetingdate  calendar date in YYYY-MM-DD form
//	qrtoken      64 lowercase hex characters
package validator
