// Package api is the HTTP surface of the service: authentication, packing
// tasks and strategy management. Handlers decode and validate requests,
// call the service layer and map its errors to status codes with
// MapErrorToStatusCode. Error bodies carry a trace ID and never the raw
// error.
package api
