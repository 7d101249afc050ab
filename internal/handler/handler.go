// Package handler contains the HTTP handlers. They bind and validate the
// request, call the content service and render its result; error responses
// are produced by the global error handler in the middleware package.
package handler
