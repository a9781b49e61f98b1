// Package wizard drives a flow.Session from the terminal. A Runner walks the
// steps of a form, prompting every visible field through a PromptDriver,
// re-prompting on validation errors and offering Next/Back/Submit between
// steps. The default driver uses survey; tests swap in scripted drivers.
package wizard
