// Package messages defines the conversation wire model: role-discriminated
// messages, multi-part content (text and file attachments), and the tool-call
// requests emitted by the model. The JSON shapes mirror the chat-completions
// wire format so messages round-trip unchanged through the durable
// conversation log and the completion backend.
//
// Design decisions:
//   - Flexible content: a message body is a plain string, null, or an ordered
//     list of typed parts (text, file reference with MIME type)
//   - JSON interop: custom marshalers keep the exact wire layout, including
//     null content on tool-call-only assistant messages
//   - Memory efficiency: struct{} padding enforces keyed initialization
//
// Example usage:
//
//	msg := messages.User("What's the weather in NYC?")
//
//	withFile := messages.UserParts(
//	    messages.Text("Summarize this document"),
//	    messages.File("data:application/pdf;base64,...", "application/pdf"),
//	)
package messages
