// Package api holds the types shared between the broker and the service SDK:
// connect result codes, the structured ConnectError with its Is* helpers,
// and the info records handed to listeners.
//
// Errors follow one pattern throughout the module. Callers test the kind of a
// failure with the helper rather than comparing strings:
//
//	if api.IsAccessDenied(err) {
//	    // the source lacks service_manager:user_id or similar
//	}
//
// CapabilityDenied never crosses the wire. The peer only observes its handle
// closing; the kind exists so local code and tests can name the case.
package api
