// Package events turns broker topology notifications into human-readable
// events.
//
// A Recorder is attached to the service manager as a listener. Each
// notification is rendered through a MessageTemplateEngine, whose templates
// are text/template sources with the sprig function library and a shared
// "identity" partial, then logged and kept in a bounded history.
//
// Templates can be overridden per reason:
//
//	engine := events.NewMessageTemplateEngine()
//	_ = engine.SetTemplate(events.ReasonServiceStarted, `{{.Name | upper}} is up`)
package events
