// Package authmon instruments an authentication service.
//
// Instrument decorates an Authenticator so that every call runs through the
// operation monitor and every security-relevant outcome is written to the
// audit trail with the caller's client information:
//
//	auth := authmon.Instrument(svc, tel.Monitor(), tel.Audit())
//	ctx = authmon.WithClient(ctx, r.RemoteAddr, r.UserAgent())
//	session, err := auth.Login(ctx, authmon.Credentials{Email: email, Password: pw})
//
// Errors returned by the service may implement Coder; their code is recorded
// on the audit entry, and codes containing "SECURITY" escalate to a security
// alert.
package authmon
